package simulation

import (
	"math"

	"github.com/kilianp07/prodplan/core/model"
)

// finalizeDay books today's shipment against the available inventory.
func (e *Engine) finalizeDay(t int) {
	d := &e.days[t]
	due := d.ScheduledShipmentQty
	d.ActualShipmentQty = math.Max(0, math.Min(d.InventoryAvailable, due))
	d.ActualShipmentDetails = apportion(d.ScheduledShipmentDetails, d.ActualShipmentQty)
	d.InventoryEnd = math.Max(0, d.InventoryAvailable-d.ActualShipmentQty)
	d.DemandMet = d.ActualShipmentQty >= due-Tolerance
	d.HoldingCost = e.holding(d.InventoryEnd)
}

// refreshInventory recomputes the inventory chain of day t from the previous
// day while keeping its booked shipment.
func (e *Engine) refreshInventory(t int) {
	d := &e.days[t]
	if t > 0 {
		d.InventoryStart = e.days[t-1].InventoryEnd
	} else {
		d.InventoryStart = 0
	}
	d.InventoryAvailable = d.InventoryStart + d.Production
	d.InventoryEnd = d.InventoryAvailable - d.ActualShipmentQty
	d.HoldingCost = e.holding(d.InventoryEnd)
}

// apportion fills the details in order until qty is exhausted. The last
// served entry may be partial; entries after it are dropped.
func apportion(details []model.ShipmentDetail, qty float64) []model.ShipmentDetail {
	var out []model.ShipmentDetail
	remaining := qty
	for _, det := range details {
		if remaining <= 0 {
			break
		}
		take := math.Min(det.Quantity, remaining)
		if take <= 0 {
			continue
		}
		out = append(out, model.ShipmentDetail{City: det.City, Quantity: take})
		remaining -= take
	}
	return out
}

// finalize re-derives working flags and holding costs after the corrective
// passes changed inventory trajectories.
func (e *Engine) finalize() {
	for i := range e.days {
		d := &e.days[i]
		d.IsWorkingDay = e.working[i] && !d.IsReductionDay
		d.HoldingCost = e.holding(d.InventoryEnd)
	}
}
