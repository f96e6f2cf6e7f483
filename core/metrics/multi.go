package metrics

import (
	"errors"

	"github.com/kilianp07/prodplan/core/model"
)

// MultiSink fans out run events to multiple sinks.
type MultiSink struct {
	Sinks []RunSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...RunSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordDays forwards the trajectory to the sinks that support it.
func (m *MultiSink) RecordDays(runID string, days []model.DayRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(DayRecorder); ok {
			if err := rec.RecordDays(runID, days); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
