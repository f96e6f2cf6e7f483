package runlog

import (
	"context"
	"time"
)

// Run statuses recorded in the history.
const (
	StatusOK       = "ok"
	StatusConflict = "conflict"
	StatusInvalid  = "invalid"
	StatusError    = "error"
)

// Record captures the outcome of one planning run.
type Record struct {
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
	Stage          string    `json:"stage,omitempty"`
	Error          string    `json:"error,omitempty"`
	Year           int       `json:"year"`
	Sources        int       `json:"sources"`
	ScheduleStatus string    `json:"schedule_status,omitempty"`
	PeakDemand     float64   `json:"peak_demand"`

	TotalProduction float64 `json:"total_production"`
	TotalShipped    float64 `json:"total_shipped"`
	OvertimeHours   float64 `json:"overtime_hours"`
	ExceptionDays   int     `json:"exception_days"`
	ReductionDays   int     `json:"reduction_days"`
	// TotalCost is a decimal string rounded to cents.
	TotalCost  string `json:"total_cost,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Query defines filters for retrieving records. A zero Limit returns all
// matching records.
type Query struct {
	Start  time.Time
	End    time.Time
	Status string
	Limit  int
}

// Store persists run records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}

// limit keeps the most recent q.Limit records.
func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
