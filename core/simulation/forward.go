package simulation

import (
	"fmt"
	"math"
)

// forward is Pass 1. It stops at the first unresolved shortfall.
func (e *Engine) forward() error {
	std := e.p.StandardDailyProduction()
	for t := range e.days {
		d := &e.days[t]
		if t > 0 {
			d.InventoryStart = e.days[t-1].InventoryEnd
		} else {
			d.InventoryStart = 0
		}
		if e.working[t] && !d.IsExceptionDay && !d.IsReductionDay {
			d.Production = std
			d.OperatingHours = std / e.rate
		}
		d.InventoryAvailable = d.InventoryStart + d.Production

		if t <= deferralWindow && d.ScheduledShipmentQty > d.InventoryAvailable+Tolerance {
			e.deferShipment(t)
		}

		shortfall := d.ScheduledShipmentQty - d.InventoryAvailable
		if shortfall > Tolerance {
			shortfall = e.flexSameDay(t, shortfall)
		}
		if shortfall > Tolerance {
			shortfall = e.borrowOvertime(t, shortfall)
		}
		if shortfall > Tolerance {
			e.markConflict(t, shortfall)
			e.markUnsimulated(t)
			e.report.FailedDay = t
			return &DemandConflictError{Day: t, Date: d.Date, Shortfall: shortfall}
		}
		e.finalizeDay(t)
	}
	return nil
}

// deferShipment moves the whole schedule of day t to the next working day
// within reach. Nothing moves when no such day exists.
func (e *Engine) deferShipment(t int) {
	for p := t + 1; p <= t+deferralReach && p < len(e.days); p++ {
		if !e.working[p] {
			continue
		}
		d, target := &e.days[t], &e.days[p]
		for _, det := range d.ScheduledShipmentDetails {
			target.AddScheduled(det.City, det.Quantity)
		}
		d.AppendNote(fmt.Sprintf("shipment of %.0f deferred to day %d", d.ScheduledShipmentQty, p))
		d.ShipmentDeferred = true
		d.ClearScheduled()
		e.report.DeferredDays++
		e.log.Debugw("shipment deferred", map[string]any{"day": t, "to": p})
		return
	}
}

// flexSameDay is Tier 2: raise today's output up to the standard cap within
// the remaining standard hours. It returns the remaining shortfall.
func (e *Engine) flexSameDay(t int, shortfall float64) float64 {
	d := &e.days[t]
	if !e.working[t] || d.IsExceptionDay || d.IsReductionDay {
		return shortfall
	}
	capacity := math.Min(e.p.MaxStandardProduction-d.Production, (e.p.StandardHours-d.OperatingHours)*e.rate)
	units := math.Min(wholeUnits(capacity), math.Ceil(shortfall-Tolerance))
	if units <= 0 {
		return shortfall
	}
	d.Production += units
	d.OperatingHours += units / e.rate
	d.InventoryAvailable += units
	d.AppendNote(fmt.Sprintf("flex +%.0f units", units))
	e.report.FlexUnits += units
	e.log.Debugw("same-day flex", map[string]any{"day": t, "units": units})
	return shortfall - units
}

// borrowOvertime is Tier 3: add extended hours on earlier working days,
// nearest first, and carry the extra units forward to day t.
func (e *Engine) borrowOvertime(t int, shortfall float64) float64 {
	maxHours := e.p.MaxExtendedHours()
	overheadPerHour := (e.p.DailyMfgOverhead() + e.p.DailySGA()) / e.p.StandardHours
	laborPerHour := float64(e.p.EmployeeCount) * e.p.LaborRate * overtimePremium
	for p := t - 1; p >= 0 && shortfall > Tolerance; p-- {
		pd := &e.days[p]
		if !e.working[p] || pd.IsReductionDay {
			continue
		}
		units := math.Min(wholeUnits((maxHours-pd.OperatingHours)*e.rate), math.Ceil(shortfall-Tolerance))
		if units <= 0 {
			continue
		}
		hours := units / e.rate
		pd.Production += units
		pd.OperatingHours += hours
		pd.IsExceptionDay = true
		pd.ExceptionCost += hours*laborPerHour + hours*overheadPerHour
		pd.AppendNote(fmt.Sprintf("overtime +%.0f units for day %d", units, t))
		e.report.OvertimeHours += hours
		e.report.OvertimeUnits += units
		e.reopen(p, t)
		shortfall -= units
		e.log.Debugw("overtime borrowed", map[string]any{"day": t, "from": p, "units": units, "hours": hours})
	}
	return shortfall
}

// reopen re-finalizes the inventory of days from..to-1 with their shipments
// unchanged, then refreshes the opening inventory of day to.
func (e *Engine) reopen(from, to int) {
	for q := from; q < to; q++ {
		e.refreshInventory(q)
	}
	d := &e.days[to]
	d.InventoryStart = e.days[to-1].InventoryEnd
	d.InventoryAvailable = d.InventoryStart + d.Production
}

func (e *Engine) markConflict(t int, shortfall float64) {
	d := &e.days[t]
	e.finalizeDay(t)
	d.DemandMet = false
	d.AppendNote(fmt.Sprintf("CRITICAL: demand conflict, shortfall %.2f", shortfall))
	e.log.Errorf("demand conflict on day %d: shortfall %.2f", t, shortfall)
}

// markUnsimulated flags every day after the failed one, which pass one never
// reached, as not meeting demand.
func (e *Engine) markUnsimulated(failed int) {
	note := fmt.Sprintf("not simulated: plan stopped at day %d", failed)
	for t := failed + 1; t < len(e.days); t++ {
		e.days[t].DemandMet = false
		e.days[t].AppendNote(note)
	}
}

func wholeUnits(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Floor(v + 1e-9)
}
