package metrics

import (
	"errors"
	"strconv"

	coremetrics "github.com/kilianp07/prodplan/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	peak       prometheus.Gauge
	production prometheus.Gauge
	overtime   prometheus.Gauge
	exceptions prometheus.Gauge
	reductions prometheus.Gauge
	cost       *prometheus.GaugeVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_runs_total",
		Help: "Total number of planning runs",
	}, []string{"status", "schedule_status", "fallback"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plan_run_duration_seconds",
		Help:    "Wall time of a planning run",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})); err != nil {
		return nil, err
	}
	gauge := func(name, help string) (prometheus.Gauge, error) {
		return register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help}))
	}
	if s.peak, err = gauge("plan_peak_demand_units", "Peak daily scheduled demand of the last run"); err != nil {
		return nil, err
	}
	if s.production, err = gauge("plan_production_units", "Total production of the last run"); err != nil {
		return nil, err
	}
	if s.overtime, err = gauge("plan_overtime_hours", "Overtime hours booked by the last run"); err != nil {
		return nil, err
	}
	if s.exceptions, err = gauge("plan_exception_days", "Exception days of the last run"); err != nil {
		return nil, err
	}
	if s.reductions, err = gauge("plan_reduction_days", "Reduction days of the last run"); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plan_cost",
		Help: "Costs of the last run by kind",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when one with the same
// descriptor exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the counters and the last-run gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Status, ev.ScheduleStatus, strconv.FormatBool(ev.Fallback)).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	if ev.Status != "ok" {
		return nil
	}
	s.peak.Set(ev.PeakDemand)
	s.production.Set(ev.TotalProduction)
	s.overtime.Set(ev.OvertimeHours)
	s.exceptions.Set(float64(ev.ExceptionDays))
	s.reductions.Set(float64(ev.ReductionDays))
	s.cost.WithLabelValues("holding").Set(ev.HoldingCost)
	s.cost.WithLabelValues("exception").Set(ev.ExceptionCost)
	return nil
}
