package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/prodplan/core/metrics"
)

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	ok := coremetrics.RunEvent{
		Status:          "ok",
		ScheduleStatus:  "optimal",
		PeakDemand:      15,
		TotalProduction: 24000,
		OvertimeHours:   1.6,
		ExceptionDays:   1,
		ReductionDays:   40,
		HoldingCost:     120.5,
		Duration:        time.Second,
	}
	require.NoError(t, sink.RecordRun(ok))
	failed := coremetrics.RunEvent{Status: "conflict", ScheduleStatus: "fallback_no_solver", Fallback: true, PeakDemand: -1}
	require.NoError(t, sink.RecordRun(failed))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("ok", "optimal", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("conflict", "fallback_no_solver", "true")))
	assert.Equal(t, 15.0, testutil.ToFloat64(sink.peak))
	assert.Equal(t, 24000.0, testutil.ToFloat64(sink.production))
	assert.Equal(t, 40.0, testutil.ToFloat64(sink.reductions))
	assert.Equal(t, 120.5, testutil.ToFloat64(sink.cost.WithLabelValues("holding")))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.duration))
}

func TestPromSink_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, second.RecordRun(coremetrics.RunEvent{Status: "ok", ScheduleStatus: "skipped"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.runs.WithLabelValues("ok", "skipped", "false")))
}
