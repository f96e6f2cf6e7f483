package model

import "time"

// Horizon is the number of simulated days.
const Horizon = 365

// DayRecord holds the planned and simulated state of one day.
type DayRecord struct {
	DayIndex     int       `json:"day_index"`
	Date         time.Time `json:"date"`
	IsWorkingDay bool      `json:"is_working_day"`

	Production     float64 `json:"production"`
	OperatingHours float64 `json:"operating_hours"`

	InventoryStart     float64 `json:"inventory_start"`
	InventoryAvailable float64 `json:"inventory_available"`
	InventoryEnd       float64 `json:"inventory_end"`

	ScheduledShipmentQty     float64          `json:"scheduled_shipment_qty"`
	ScheduledShipmentDetails []ShipmentDetail `json:"scheduled_shipment_details"`
	ActualShipmentQty        float64          `json:"actual_shipment_qty"`
	ActualShipmentDetails    []ShipmentDetail `json:"actual_shipment_details"`
	DemandMet                bool             `json:"demand_met"`

	HoldingCost   float64 `json:"holding_cost"`
	ExceptionCost float64 `json:"exception_cost"`

	IsExceptionDay   bool   `json:"is_exception_day"`
	IsReductionDay   bool   `json:"is_reduction_day"`
	ShipmentDeferred bool   `json:"shipment_deferred"`
	ExceptionNote    string `json:"exception_note,omitempty"`
}

// NewDays allocates a fresh horizon of day records starting at start.
// Working flags are left to the caller.
func NewDays(start time.Time) []DayRecord {
	days := make([]DayRecord, Horizon)
	for i := range days {
		days[i] = DayRecord{DayIndex: i, Date: start.AddDate(0, 0, i), DemandMet: true}
	}
	return days
}

// AddScheduled appends a scheduled shipment for city.
func (d *DayRecord) AddScheduled(city string, qty float64) {
	d.ScheduledShipmentQty += qty
	d.ScheduledShipmentDetails = append(d.ScheduledShipmentDetails, ShipmentDetail{City: city, Quantity: qty})
}

// ClearScheduled removes every scheduled shipment of the day.
func (d *DayRecord) ClearScheduled() {
	d.ScheduledShipmentQty = 0
	d.ScheduledShipmentDetails = nil
}

// AppendNote adds a note to the exception notes of the day.
func (d *DayRecord) AppendNote(note string) {
	if d.ExceptionNote == "" {
		d.ExceptionNote = note
		return
	}
	d.ExceptionNote += "; " + note
}
