package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/prodplan/core/logger"
	"github.com/kilianp07/prodplan/core/model"
)

const (
	// Tolerance is the unit tolerance used when comparing quantities.
	Tolerance = 0.01
	// deferralWindow is the last day index on which startup shortfalls are deferred.
	deferralWindow = 6
	// deferralReach is how many days ahead a deferred shipment may move.
	deferralReach = 6
	// overtimePremium is the share of the labor rate paid on top for overtime.
	overtimePremium = 0.5
)

// DemandConflictError reports a shortfall that no tier could resolve.
type DemandConflictError struct {
	Day       int
	Date      time.Time
	Shortfall float64
}

func (e *DemandConflictError) Error() string {
	return fmt.Sprintf("demand conflict on day %d (%s): shortfall of %.2f units", e.Day, e.Date.Format("2006-01-02"), e.Shortfall)
}

// Report summarises what the passes did.
type Report struct {
	OvertimeHours    float64 `json:"overtime_hours"`
	OvertimeUnits    float64 `json:"overtime_units"`
	FlexUnits        float64 `json:"flex_units"`
	DeferredDays     int     `json:"deferred_days"`
	MinSafe          float64 `json:"min_safe_inventory"`
	SlackReductions  int     `json:"slack_reductions"`
	OffsetReductions int     `json:"offset_reductions"`
	// OffsetRemaining is the overtime that Pass B could not claw back.
	OffsetRemaining float64 `json:"offset_remaining_hours"`
	FailedDay       int     `json:"failed_day"`
}

// Engine simulates one horizon with fixed parameters.
type Engine struct {
	p   model.Parameters
	log logger.Logger

	days    []model.DayRecord
	working []bool
	rate    float64
	unit    float64
	report  Report
}

// NewEngine returns an engine for params. Parameters must have been validated.
func NewEngine(params model.Parameters, log logger.Logger) *Engine {
	return &Engine{p: params, log: logger.OrNop(log)}
}

func (e *Engine) reset(days []model.DayRecord) error {
	if len(days) != model.Horizon {
		return fmt.Errorf("simulation: expected %d day records, got %d", model.Horizon, len(days))
	}
	if e.p.StandardHours <= 0 || e.p.MaxStandardProduction <= 0 {
		return fmt.Errorf("simulation: standard hours and max standard production must be positive")
	}
	e.days = days
	e.working = make([]bool, len(days))
	for i := range days {
		e.working[i] = e.p.Calendar != nil && e.p.Calendar.IsWorking(i)
		days[i].IsWorkingDay = e.working[i]
	}
	e.rate = e.p.UnitsPerHour()
	e.unit = e.p.WeightedUnitCost()
	e.report = Report{FailedDay: -1}
	return nil
}

// Run executes Pass 1, the two corrective passes and the finalizer on days.
// On a demand conflict the partially simulated days are finalized and a
// *DemandConflictError is returned together with the report.
func (e *Engine) Run(days []model.DayRecord) (Report, error) {
	if err := e.reset(days); err != nil {
		return Report{FailedDay: -1}, err
	}
	defer func() { e.days = nil }()

	if err := e.forward(); err != nil {
		e.finalize()
		return e.report, err
	}
	e.report.MinSafe = e.minSafeInventory()
	e.report.SlackReductions = e.removeSlack(e.report.MinSafe)
	e.report.OffsetReductions, e.report.OffsetRemaining = e.offsetOvertime()
	e.finalize()

	e.log.Infof("simulation done: overtime %.2fh, %d slack reductions, %d offset reductions",
		e.report.OvertimeHours, e.report.SlackReductions, e.report.OffsetReductions)
	return e.report, nil
}

// FinalizeOnly applies the finalizer without simulating production. It is
// used when there is nothing to ship.
func (e *Engine) FinalizeOnly(days []model.DayRecord) error {
	if err := e.reset(days); err != nil {
		return err
	}
	defer func() { e.days = nil }()
	e.finalize()
	return nil
}

func (e *Engine) holding(inventory float64) float64 {
	return math.Max(0, inventory) * e.unit * e.p.DailyHoldingRate()
}

// isDefaultDay reports whether day t only carries plain standard production.
func (e *Engine) isDefaultDay(t int) bool {
	d := &e.days[t]
	return e.working[t] && !d.IsExceptionDay && !d.IsReductionDay &&
		d.Production > Tolerance && math.Abs(d.Production-e.p.TargetDailyProduction) <= Tolerance
}
