package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/shipment"
	"github.com/kilianp07/prodplan/core/simulation"
)

func TestSummarize(t *testing.T) {
	days := model.NewDays(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))[:4]
	days[0] = model.DayRecord{IsWorkingDay: true, Production: 100, OperatingHours: 8, InventoryEnd: 100, HoldingCost: 0.105, DemandMet: true}
	days[1] = model.DayRecord{IsWorkingDay: true, Production: 120, OperatingHours: 9.6, InventoryEnd: 20, ScheduledShipmentQty: 200, ActualShipmentQty: 200,
		IsExceptionDay: true, ExceptionCost: 160.004, HoldingCost: 0.021, DemandMet: true}
	days[2] = model.DayRecord{IsReductionDay: true, InventoryEnd: 20, ShipmentDeferred: true, HoldingCost: 0.021, DemandMet: true}
	days[3] = model.DayRecord{IsWorkingDay: true, Production: 100, OperatingHours: 8, InventoryAvailable: 120, ScheduledShipmentQty: 150, ActualShipmentQty: 120}

	s := Summarize("conflict", days, shipment.Outcome{Status: shipment.StatusOptimal, PeakDemand: 200}, simulation.Report{OvertimeHours: 1.6})

	assert.Equal(t, "conflict", s.Status)
	assert.Equal(t, "optimal", s.ScheduleStatus)
	assert.Equal(t, 200.0, s.PeakDemand)
	assert.Equal(t, 320.0, s.TotalProduction)
	assert.Equal(t, 350.0, s.TotalScheduled)
	assert.Equal(t, 320.0, s.TotalShipped)
	assert.Equal(t, 30.0, s.Shortfall)
	assert.InDelta(t, 25.6, s.OperatingHours, 1e-9)
	assert.Equal(t, 1.6, s.OvertimeHours)
	assert.Equal(t, 3, s.WorkingDays)
	assert.Equal(t, 1, s.ExceptionDays)
	assert.Equal(t, 1, s.ReductionDays)
	assert.Equal(t, 1, s.DeferredDays)
	assert.Equal(t, 1, s.UnmetDays)
	assert.Equal(t, 100.0, s.PeakInventory)
	assert.Equal(t, 35.0, s.AverageInventory)
	assert.Equal(t, "0.15", s.HoldingCost.String())
	assert.Equal(t, "160", s.ExceptionCost.String())
	assert.Equal(t, "160.15", s.TotalCost.String())
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("ok", nil, shipment.Outcome{Status: shipment.StatusSkipped}, simulation.Report{})
	assert.Equal(t, "skipped", s.ScheduleStatus)
	assert.True(t, s.TotalCost.IsZero())
}
