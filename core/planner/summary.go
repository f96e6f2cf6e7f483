package planner

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/shipment"
	"github.com/kilianp07/prodplan/core/simulation"
)

// Summary aggregates a finished horizon. Money amounts are rounded to cents.
type Summary struct {
	Status         string  `json:"status" yaml:"status"`
	ScheduleStatus string  `json:"schedule_status" yaml:"schedule_status"`
	PeakDemand     float64 `json:"peak_demand" yaml:"peak_demand"`

	TotalProduction float64 `json:"total_production" yaml:"total_production"`
	TotalScheduled  float64 `json:"total_scheduled" yaml:"total_scheduled"`
	TotalShipped    float64 `json:"total_shipped" yaml:"total_shipped"`
	Shortfall       float64 `json:"shortfall" yaml:"shortfall"`
	OperatingHours  float64 `json:"operating_hours" yaml:"operating_hours"`
	OvertimeHours   float64 `json:"overtime_hours" yaml:"overtime_hours"`

	WorkingDays   int `json:"working_days" yaml:"working_days"`
	ExceptionDays int `json:"exception_days" yaml:"exception_days"`
	ReductionDays int `json:"reduction_days" yaml:"reduction_days"`
	DeferredDays  int `json:"deferred_days" yaml:"deferred_days"`
	UnmetDays     int `json:"unmet_days" yaml:"unmet_days"`

	PeakInventory    float64 `json:"peak_inventory" yaml:"peak_inventory"`
	AverageInventory float64 `json:"average_inventory" yaml:"average_inventory"`

	HoldingCost   decimal.Decimal `json:"holding_cost" yaml:"holding_cost"`
	ExceptionCost decimal.Decimal `json:"exception_cost" yaml:"exception_cost"`
	TotalCost     decimal.Decimal `json:"total_cost" yaml:"total_cost"`
}

// Summarize builds the summary of days.
func Summarize(status string, days []model.DayRecord, schedule shipment.Outcome, report simulation.Report) Summary {
	s := Summary{
		Status:         status,
		ScheduleStatus: schedule.Status,
		PeakDemand:     schedule.PeakDemand,
		OvertimeHours:  report.OvertimeHours,
	}
	if len(days) == 0 {
		return s
	}
	production := make([]float64, len(days))
	scheduled := make([]float64, len(days))
	shipped := make([]float64, len(days))
	hours := make([]float64, len(days))
	inventory := make([]float64, len(days))
	holding, exception := decimal.Zero, decimal.Zero
	for i, d := range days {
		production[i] = d.Production
		scheduled[i] = d.ScheduledShipmentQty
		shipped[i] = d.ActualShipmentQty
		hours[i] = d.OperatingHours
		inventory[i] = d.InventoryEnd
		holding = holding.Add(decimal.NewFromFloat(d.HoldingCost))
		exception = exception.Add(decimal.NewFromFloat(d.ExceptionCost))
		if d.IsWorkingDay {
			s.WorkingDays++
		}
		if d.IsExceptionDay {
			s.ExceptionDays++
		}
		if d.IsReductionDay {
			s.ReductionDays++
		}
		if d.ShipmentDeferred {
			s.DeferredDays++
		}
		if !d.DemandMet {
			s.UnmetDays++
		}
	}
	s.TotalProduction = floats.Sum(production)
	s.TotalScheduled = floats.Sum(scheduled)
	s.TotalShipped = floats.Sum(shipped)
	s.Shortfall = s.TotalScheduled - s.TotalShipped
	s.OperatingHours = floats.Sum(hours)
	s.PeakInventory = floats.Max(inventory)
	s.AverageInventory = floats.Sum(inventory) / float64(len(inventory))
	s.HoldingCost = holding.Round(2)
	s.ExceptionCost = exception.Round(2)
	s.TotalCost = holding.Add(exception).Round(2)
	return s
}
