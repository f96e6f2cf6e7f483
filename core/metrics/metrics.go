package metrics

import (
	"time"

	"github.com/kilianp07/prodplan/core/model"
)

// RunEvent summarises one planning run for metric sinks.
type RunEvent struct {
	RunID          string
	Status         string
	ScheduleStatus string
	Fallback       bool
	PeakDemand     float64
	SolverNodes    int
	Duration       time.Duration

	TotalProduction float64
	TotalShipped    float64
	OvertimeHours   float64
	HoldingCost     float64
	ExceptionCost   float64
	ExceptionDays   int
	ReductionDays   int
	DeferredDays    int
	Time            time.Time
}

// RunSink records planning runs for observability purposes.
type RunSink interface {
	RecordRun(ev RunEvent) error
}

// DayRecorder is implemented by sinks able to store the daily trajectory of a run.
type DayRecorder interface {
	RecordDays(runID string, days []model.DayRecord) error
}

// NopSink implements RunSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                   { return nil }
func (NopSink) RecordDays(string, []model.DayRecord) error { return nil }
