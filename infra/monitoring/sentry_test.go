package monitoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremon "github.com/kilianp07/prodplan/core/monitoring"
)

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitor_InvalidDSN(t *testing.T) {
	_, err := NewSentryMonitor(SentryConfig{DSN: "::not a dsn"})
	assert.Error(t, err)
}

func TestSentryMonitor_Capture(t *testing.T) {
	m, err := NewSentryMonitor(SentryConfig{DSN: "https://public@127.0.0.1:1/1", Environment: "test"})
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.CaptureException(errors.New("boom"), map[string]string{"stage": "simulate", "run_id": "r1"})
		m.CaptureException(nil, nil)
	})
}
