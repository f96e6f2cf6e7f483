package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// OrNop returns m, or a NopMonitor when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return NopMonitor{}
	}
	return m
}

// Captured is one exception seen by a RecordingMonitor.
type Captured struct {
	Err  error
	Tags map[string]string
}

// RecordingMonitor keeps captured exceptions in memory. It is meant for tests
// and for the dry-run mode of the CLI.
type RecordingMonitor struct {
	mu     sync.Mutex
	events []Captured
}

func (m *RecordingMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		cp[k] = v
	}
	m.mu.Lock()
	m.events = append(m.events, Captured{Err: err, Tags: cp})
	m.mu.Unlock()
}

func (m *RecordingMonitor) Recover()            {}
func (m *RecordingMonitor) Flush(time.Duration) {}

// Events returns a copy of the captured exceptions.
func (m *RecordingMonitor) Events() []Captured {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Captured(nil), m.events...)
}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the global monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Flush flushes buffered events of the global monitor.
func Flush(d time.Duration) {
	Current().Flush(d)
}
