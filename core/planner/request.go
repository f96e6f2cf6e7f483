package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/prodplan/core/model"
)

// Request is the input of one planning run.
type Request struct {
	Sources []model.DemandSource `json:"sources"`
	Params  model.Parameters     `json:"params"`
	// Year dates the horizon from January 1st. Zero uses the calendar start
	// when the calendar knows it.
	Year int `json:"year"`
}

type startedCalendar interface {
	Start() time.Time
}

func (r Request) startDate() time.Time {
	if r.Year > 0 {
		return time.Date(r.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if c, ok := r.Params.Calendar.(startedCalendar); ok {
		return c.Start()
	}
	return time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Validate checks the parameters and every demand source.
func (r Request) Validate() error {
	errs := []error{r.Params.Validate()}
	seen := make(map[string]struct{}, len(r.Sources))
	for i, s := range r.Sources {
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("source %d: %w", i, err))
			continue
		}
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("source %d: duplicate name %s", i, s.Name))
		}
		seen[s.Name] = struct{}{}
	}
	if err := errors.Join(errs...); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
