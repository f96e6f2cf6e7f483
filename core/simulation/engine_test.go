package simulation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prodplan/core/calendar"
	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/shipment"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testParams() model.Parameters {
	return model.Parameters{
		Calendar:              calendar.AllWorking(start),
		StandardHours:         8,
		EmployeeCount:         10,
		LaborRate:             20,
		HoldingCostRate:       0.2,
		Models:                []model.ProductModel{{Name: "A", UnitCost: 50, BuildRatio: 1}},
		TargetDailyProduction: 100,
		MaxStandardProduction: 100,
	}
}

func assertInvariants(t *testing.T, days []model.DayRecord) {
	t.Helper()
	for i, d := range days {
		if i > 0 {
			assert.InDelta(t, days[i-1].InventoryEnd, d.InventoryStart, 1e-6, "day %d start", i)
		} else {
			assert.Equal(t, 0.0, d.InventoryStart)
		}
		assert.InDelta(t, d.InventoryStart+d.Production, d.InventoryAvailable, 1e-6, "day %d available", i)
		assert.InDelta(t, d.InventoryAvailable-d.ActualShipmentQty, d.InventoryEnd, 1e-6, "day %d end", i)
		assert.GreaterOrEqual(t, d.InventoryEnd, -1e-6, "day %d negative inventory", i)
		assert.LessOrEqual(t, d.ActualShipmentQty, d.ScheduledShipmentQty+1e-9, "day %d over-shipped", i)
		assert.InDelta(t, d.ActualShipmentQty, model.TotalQuantity(d.ActualShipmentDetails), 1e-6, "day %d details", i)
		assert.GreaterOrEqual(t, d.InventoryAvailable, d.ActualShipmentQty-Tolerance, "day %d infeasible", i)
	}
}

func TestRun_DefersStartupShortfall(t *testing.T) {
	days := model.NewDays(start)
	days[0].AddScheduled("Lyon", 150)

	rep, err := NewEngine(testParams(), nil).Run(days)
	require.NoError(t, err)

	assert.True(t, days[0].ShipmentDeferred)
	assert.Equal(t, 0.0, days[0].ScheduledShipmentQty)
	assert.Equal(t, 150.0, days[1].ScheduledShipmentQty)
	assert.Equal(t, 150.0, days[1].ActualShipmentQty)
	assert.Equal(t, 50.0, days[1].InventoryEnd)
	assert.Equal(t, 0.0, rep.OvertimeHours)
	assert.Equal(t, 1, rep.DeferredDays)
	for _, d := range days {
		assert.False(t, d.IsExceptionDay)
	}
	assert.Equal(t, 100.0, days[0].Production)
	assert.True(t, days[2].IsReductionDay)
	assert.False(t, days[2].IsWorkingDay)
	assertInvariants(t, days)
}

func TestRun_OvertimeOnNearestPriorDay(t *testing.T) {
	days := model.NewDays(start)
	days[50].AddScheduled("Nantes", 5120)

	rep, err := NewEngine(testParams(), nil).Run(days)
	require.NoError(t, err)

	assert.True(t, days[49].IsExceptionDay)
	assert.Equal(t, 120.0, days[49].Production)
	assert.InDelta(t, 9.6, days[49].OperatingHours, 1e-9)
	assert.InDelta(t, 160, days[49].ExceptionCost, 1e-6)
	assert.False(t, days[48].IsExceptionDay)
	assert.Equal(t, 100.0, days[48].Production)
	assert.Equal(t, 5120.0, days[50].ActualShipmentQty)
	assert.True(t, days[50].DemandMet)
	assert.InDelta(t, 1.6, rep.OvertimeHours, 1e-9)
	assert.Equal(t, 20.0, rep.OvertimeUnits)
	assertInvariants(t, days)
}

func TestRun_SameDayFlex(t *testing.T) {
	p := testParams()
	p.TargetDailyProduction = 80
	days := model.NewDays(start)
	days[10].AddScheduled("Lille", 900)

	rep, err := NewEngine(p, nil).Run(days)
	require.NoError(t, err)
	assert.Equal(t, 100.0, days[10].Production)
	assert.InDelta(t, 8, days[10].OperatingHours, 1e-9)
	assert.Equal(t, 20.0, rep.FlexUnits)
	assert.Equal(t, 0.0, rep.OvertimeHours)
	for _, d := range days {
		assert.False(t, d.IsExceptionDay)
	}
	assertInvariants(t, days)
}

func TestRun_DemandConflictStopsPassOne(t *testing.T) {
	days := model.NewDays(start)
	days[3].AddScheduled("Brest", 10000)

	rep, err := NewEngine(testParams(), nil).Run(days)
	var conflict *DemandConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 7, conflict.Day)
	assert.InDelta(t, 8850, conflict.Shortfall, 1e-6)
	assert.Equal(t, 7, rep.FailedDay)

	for d := 3; d <= 6; d++ {
		assert.True(t, days[d].ShipmentDeferred, "day %d", d)
	}
	assert.False(t, days[7].DemandMet)
	assert.Equal(t, 1150.0, days[7].ActualShipmentQty)
	assert.Equal(t, 0.0, days[7].InventoryEnd)
	assert.Contains(t, days[7].ExceptionNote, "CRITICAL")
	assert.Equal(t, 0.0, days[8].Production)
	for _, d := range []int{8, 100, len(days) - 1} {
		assert.False(t, days[d].DemandMet, "day %d", d)
		assert.Equal(t, "not simulated: plan stopped at day 7", days[d].ExceptionNote, "day %d", d)
		assert.False(t, days[d].IsExceptionDay, "day %d", d)
	}
	for d := 0; d < 7; d++ {
		assert.True(t, days[d].IsExceptionDay, "day %d", d)
	}
}

func TestRun_CorrectivePasses(t *testing.T) {
	days := model.NewDays(start)
	days[50].AddScheduled("Nantes", 5120)
	days[364].AddScheduled("Nantes", 100)

	rep, err := NewEngine(testParams(), nil).Run(days)
	require.NoError(t, err)

	assert.Equal(t, 5020.0, rep.MinSafe)
	assert.Equal(t, 263, rep.SlackReductions)
	assert.Equal(t, 1, rep.OffsetReductions)
	assert.Equal(t, 0.0, rep.OffsetRemaining)
	assert.True(t, days[51].IsReductionDay)
	assert.True(t, days[312].IsReductionDay)
	assert.False(t, days[313].IsReductionDay)
	assert.True(t, days[363].IsReductionDay)
	assert.True(t, days[364].IsReductionDay)
	assert.Equal(t, 100.0, days[364].ActualShipmentQty)
	assert.Equal(t, 4900.0, days[364].InventoryEnd)
	assert.InDelta(t, 4900*50*0.2/365, days[364].HoldingCost, 1e-9)
	assertInvariants(t, days)
}

func TestRun_WeekdayCalendarWithFallbackSchedule(t *testing.T) {
	cal, err := calendar.Build(2025, calendar.Options{Holidays: []string{"2025-05-01", "2025-12-25"}})
	require.NoError(t, err)
	p := testParams()
	p.Calendar = cal
	p.AnnualMfgOverhead = 260000
	p.AnnualSGA = 130000

	sources := []model.DemandSource{
		{Name: "Lyon", QuantityPerShipment: 150, CycleLengthDays: 7},
		{Name: "Nantes", QuantityPerShipment: 200, CycleLengthDays: 14},
		{Name: "Lille", QuantityPerShipment: 60, CycleLengthDays: 3},
	}
	days := model.NewDays(cal.Start())
	shipment.Apply(sources, shipment.FallbackStarts(sources), days)
	scheduled := 0.0
	for _, d := range days {
		scheduled += d.ScheduledShipmentQty
	}

	_, err = NewEngine(p, nil).Run(days)
	require.NoError(t, err)
	assertInvariants(t, days)

	shipped := 0.0
	for i, d := range days {
		shipped += d.ActualShipmentQty
		assert.Equal(t, cal.IsWorking(i) && !d.IsReductionDay, d.IsWorkingDay)
		if !cal.IsWorking(i) {
			assert.Equal(t, 0.0, d.Production, "non-working day %d produced", i)
		}
		assert.True(t, d.DemandMet, "day %d", i)
	}
	assert.InDelta(t, scheduled, shipped, 1e-6)
}

func TestFinalizeOnly(t *testing.T) {
	cal, err := calendar.Build(2025, calendar.Options{})
	require.NoError(t, err)
	p := testParams()
	p.Calendar = cal
	days := model.NewDays(cal.Start())
	require.NoError(t, NewEngine(p, nil).FinalizeOnly(days))
	for i, d := range days {
		assert.Equal(t, 0.0, d.Production)
		assert.Equal(t, cal.IsWorking(i), d.IsWorkingDay)
	}
}

func TestRun_RejectsWrongHorizon(t *testing.T) {
	_, err := NewEngine(testParams(), nil).Run(make([]model.DayRecord, 10))
	assert.Error(t, err)
}

func TestApportion(t *testing.T) {
	det := []model.ShipmentDetail{{City: "a", Quantity: 10}, {City: "b", Quantity: 15}, {City: "c", Quantity: 5}}
	out := apportion(det, 18)
	require.Len(t, out, 2)
	assert.Equal(t, 10.0, out[0].Quantity)
	assert.Equal(t, 8.0, out[1].Quantity)
	assert.Empty(t, apportion(det, 0))
	assert.Equal(t, 30.0, model.TotalQuantity(apportion(det, 30)))
	assert.False(t, math.IsNaN(model.TotalQuantity(out)))
}
