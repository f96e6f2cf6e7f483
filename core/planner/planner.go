package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/prodplan/core/logger"
	"github.com/kilianp07/prodplan/core/metrics"
	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/monitoring"
	"github.com/kilianp07/prodplan/core/runlog"
	"github.com/kilianp07/prodplan/core/shipment"
	"github.com/kilianp07/prodplan/core/simulation"
)

// Result is the outcome of one run. On a demand conflict or a fault after
// the day records were allocated, a partial Result accompanies the error.
type Result struct {
	RunID      string               `json:"run_id"`
	StartDate  time.Time            `json:"start_date"`
	Sources    []model.DemandSource `json:"sources"`
	Records    []model.DayRecord    `json:"records"`
	Schedule   shipment.Outcome     `json:"schedule"`
	Simulation simulation.Report    `json:"simulation"`
	Summary    Summary              `json:"summary"`
}

// Planner orchestrates the scheduler and the simulation engine.
type Planner struct {
	scheduler *shipment.Scheduler
	log       logger.Logger

	mu         sync.Mutex
	monitor    monitoring.Monitor
	sink       metrics.RunSink
	recordDays bool
	history    runlog.Store
	now        func() time.Time
}

// New returns a planner. A nil scheduler always uses the fallback spread.
func New(scheduler *shipment.Scheduler, log logger.Logger) *Planner {
	log = logger.OrNop(log)
	if scheduler == nil {
		scheduler = shipment.NewScheduler(nil, log)
	}
	return &Planner{
		scheduler: scheduler,
		log:       log,
		monitor:   monitoring.NopMonitor{},
		sink:      metrics.NopSink{},
		history:   runlog.NopStore{},
		now:       time.Now,
	}
}

// SetMonitor configures the error monitor notified of unexpected faults.
func (p *Planner) SetMonitor(m monitoring.Monitor) {
	p.mu.Lock()
	p.monitor = monitoring.OrNop(m)
	p.mu.Unlock()
}

// SetSink configures the metric sink. With recordDays the day records of
// every simulated run are forwarded to sinks implementing metrics.DayRecorder.
func (p *Planner) SetSink(s metrics.RunSink, recordDays bool) {
	if s == nil {
		s = metrics.NopSink{}
	}
	p.mu.Lock()
	p.sink = s
	p.recordDays = recordDays
	p.mu.Unlock()
}

// SetHistory configures the store receiving a record of every run.
func (p *Planner) SetHistory(store runlog.Store) {
	if store == nil {
		store = runlog.NopStore{}
	}
	p.mu.Lock()
	p.history = store
	p.mu.Unlock()
}

// Plan runs req under a fresh run id.
func (p *Planner) Plan(ctx context.Context, req Request) (*Result, error) {
	return p.run(ctx, uuid.NewString(), req)
}

func (p *Planner) run(ctx context.Context, runID string, req Request) (res *Result, err error) {
	began := p.now()
	stage := StageValidate
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
		p.report(ctx, runID, req, res, err, p.now().Sub(began))
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.log.Infof("plan %s: %d sources", runID, len(req.Sources))

	start := req.startDate()
	res = &Result{RunID: runID, StartDate: start, Records: model.NewDays(start), Sources: req.Sources}
	engine := simulation.NewEngine(req.Params, p.log)

	if len(req.Sources) == 0 {
		stage = StageFinalize
		res.Schedule = shipment.Outcome{Status: shipment.StatusSkipped}
		if err := engine.FinalizeOnly(res.Records); err != nil {
			return res, &StageError{Stage: stage, Err: err}
		}
		res.Summary = Summarize(runlog.StatusOK, res.Records, res.Schedule, res.Simulation)
		return res, nil
	}

	stage = StageSchedule
	res.Schedule = p.scheduler.Schedule(ctx, req.Sources, res.Records)

	stage = StageSimulate
	report, simErr := engine.Run(res.Records)
	res.Simulation = report
	if simErr != nil {
		var conflict *simulation.DemandConflictError
		if errors.As(simErr, &conflict) {
			res.Summary = Summarize(runlog.StatusConflict, res.Records, res.Schedule, report)
			return res, simErr
		}
		return res, &StageError{Stage: stage, Err: simErr}
	}

	stage = StageFinalize
	res.Summary = Summarize(runlog.StatusOK, res.Records, res.Schedule, report)
	return res, nil
}

func statusOf(err error) string {
	var (
		verr     *ValidationError
		conflict *simulation.DemandConflictError
	)
	switch {
	case err == nil:
		return runlog.StatusOK
	case errors.As(err, &verr):
		return runlog.StatusInvalid
	case errors.As(err, &conflict):
		return runlog.StatusConflict
	default:
		return runlog.StatusError
	}
}

// report notifies the monitor, the metric sink and the history of a finished run.
func (p *Planner) report(ctx context.Context, runID string, req Request, res *Result, err error, took time.Duration) {
	p.mu.Lock()
	monitor, sink, recordDays, history := p.monitor, p.sink, p.recordDays, p.history
	p.mu.Unlock()

	status := statusOf(err)
	rec := runlog.Record{
		RunID:      runID,
		Timestamp:  p.now(),
		Status:     status,
		Year:       req.startDate().Year(),
		Sources:    len(req.Sources),
		DurationMS: took.Milliseconds(),
	}
	ev := metrics.RunEvent{RunID: runID, Status: status, Duration: took, Time: rec.Timestamp, PeakDemand: -1}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		rec.Stage = string(stageErr.Stage)
		monitor.CaptureException(err, map[string]string{"stage": string(stageErr.Stage), "run_id": runID})
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if res != nil {
		sum := res.Summary
		if sum.Status == "" {
			sum = Summarize(status, res.Records, res.Schedule, res.Simulation)
		}
		rec.ScheduleStatus = res.Schedule.Status
		rec.PeakDemand = res.Schedule.PeakDemand
		rec.TotalProduction = sum.TotalProduction
		rec.TotalShipped = sum.TotalShipped
		rec.OvertimeHours = sum.OvertimeHours
		rec.ExceptionDays = sum.ExceptionDays
		rec.ReductionDays = sum.ReductionDays
		rec.TotalCost = sum.TotalCost.StringFixed(2)

		ev.ScheduleStatus = res.Schedule.Status
		ev.Fallback = res.Schedule.IsFallback()
		ev.PeakDemand = res.Schedule.PeakDemand
		ev.SolverNodes = res.Schedule.Nodes
		ev.TotalProduction = sum.TotalProduction
		ev.TotalShipped = sum.TotalShipped
		ev.OvertimeHours = sum.OvertimeHours
		ev.HoldingCost = sum.HoldingCost.InexactFloat64()
		ev.ExceptionCost = sum.ExceptionCost.InexactFloat64()
		ev.ExceptionDays = sum.ExceptionDays
		ev.ReductionDays = sum.ReductionDays
		ev.DeferredDays = sum.DeferredDays
	}

	if serr := sink.RecordRun(ev); serr != nil {
		p.log.Warnf("plan %s: metrics sink: %v", runID, serr)
	}
	if recordDays && res != nil && status != runlog.StatusInvalid {
		if dr, ok := sink.(metrics.DayRecorder); ok {
			if serr := dr.RecordDays(runID, res.Records); serr != nil {
				p.log.Warnf("plan %s: day metrics: %v", runID, serr)
			}
		}
	}
	if herr := history.Append(context.WithoutCancel(ctx), rec); herr != nil {
		p.log.Warnf("plan %s: run history: %v", runID, herr)
	}

	switch status {
	case runlog.StatusOK:
		p.log.Infof("plan %s done in %s: schedule %s, production %.0f, shipped %.0f, cost %s",
			runID, took, rec.ScheduleStatus, rec.TotalProduction, rec.TotalShipped, rec.TotalCost)
	case runlog.StatusInvalid:
		p.log.Warnf("plan %s rejected: %v", runID, err)
	default:
		p.log.Errorf("plan %s failed: %v", runID, err)
	}
}
