package monitoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingMonitor(t *testing.T) {
	m := &RecordingMonitor{}
	tags := map[string]string{"stage": "simulate"}
	m.CaptureException(errors.New("boom"), tags)
	m.CaptureException(nil, nil)
	tags["stage"] = "mutated"

	ev := m.Events()
	require.Len(t, ev, 1)
	assert.EqualError(t, ev[0].Err, "boom")
	assert.Equal(t, "simulate", ev[0].Tags["stage"])
}

func TestInitAndCurrent(t *testing.T) {
	defer Init(NopMonitor{})
	m := &RecordingMonitor{}
	Init(m)
	assert.Same(t, m, Current())
	Init(nil)
	assert.Same(t, m, Current())
	assert.IsType(t, NopMonitor{}, OrNop(nil))
}
