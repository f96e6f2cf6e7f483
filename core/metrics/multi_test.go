package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/prodplan/core/model"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordDays(string, []model.DayRecord) error {
	r.count++
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &runOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordRun(RunEvent{RunID: "r"}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordDays("r", nil); err != nil {
		t.Fatalf("record days: %v", err)
	}
	if s1.count != 2 || s2.count != 2 || s3.runs != 1 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordRun(RunEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.count != 1 {
		t.Fatalf("second sink skipped after error")
	}
}
