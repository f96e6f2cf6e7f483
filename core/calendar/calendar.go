// Package calendar resolves the working days of the planning horizon.
package calendar

import (
	"fmt"
	"time"

	"github.com/kilianp07/prodplan/core/model"
)

// KeyLayout is the layout of the date keys stored in a Calendar.
const KeyLayout = "2006-01-02"

// Key formats t as a calendar date key.
func Key(t time.Time) string { return t.Format(KeyLayout) }

// Calendar is the set of working-day keys of a horizon starting at Start.
type Calendar struct {
	start    time.Time
	length   int
	workdays map[string]struct{}
}

// New builds a calendar of length days from an explicit set of working date keys.
func New(start time.Time, length int, keys []string) *Calendar {
	c := &Calendar{start: truncate(start), length: length, workdays: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		c.workdays[k] = struct{}{}
	}
	return c
}

// Options controls how Build derives working days.
type Options struct {
	// Weekends lists the non-working weekdays. Nil means Saturday and Sunday.
	Weekends []time.Weekday
	// Holidays are non-working date keys.
	Holidays []string
	// ExtraWorkingDays are date keys forced to be working days.
	ExtraWorkingDays []string
}

// Build resolves the working days of the horizon starting on January 1st of year.
func Build(year int, opts Options) (*Calendar, error) {
	weekends := opts.Weekends
	if weekends == nil {
		weekends = []time.Weekday{time.Saturday, time.Sunday}
	}
	off := make(map[time.Weekday]bool, len(weekends))
	for _, w := range weekends {
		off[w] = true
	}
	holidays := make(map[string]bool, len(opts.Holidays))
	for _, h := range opts.Holidays {
		if _, err := time.Parse(KeyLayout, h); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		holidays[h] = true
	}
	extra := make(map[string]bool, len(opts.ExtraWorkingDays))
	for _, e := range opts.ExtraWorkingDays {
		if _, err := time.Parse(KeyLayout, e); err != nil {
			return nil, fmt.Errorf("extra working day %q: %w", e, err)
		}
		extra[e] = true
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	var keys []string
	for i := 0; i < model.Horizon; i++ {
		d := start.AddDate(0, 0, i)
		k := Key(d)
		if extra[k] || (!off[d.Weekday()] && !holidays[k]) {
			keys = append(keys, k)
		}
	}
	return New(start, model.Horizon, keys), nil
}

// AllWorking returns a calendar where every day of the horizon is a working day.
func AllWorking(start time.Time) *Calendar {
	start = truncate(start)
	keys := make([]string, model.Horizon)
	for i := range keys {
		keys[i] = Key(start.AddDate(0, 0, i))
	}
	return New(start, model.Horizon, keys)
}

// Start returns the first date of the horizon.
func (c *Calendar) Start() time.Time { return c.start }

// Len returns the number of days covered.
func (c *Calendar) Len() int { return c.length }

// Date returns the date of the given day index.
func (c *Calendar) Date(day int) time.Time { return c.start.AddDate(0, 0, day) }

// IsWorking reports whether the day index is a working day.
func (c *Calendar) IsWorking(day int) bool {
	if day < 0 || day >= c.length {
		return false
	}
	_, ok := c.workdays[Key(c.Date(day))]
	return ok
}

// IsWorkingDate reports whether t is a working day.
func (c *Calendar) IsWorkingDate(t time.Time) bool {
	_, ok := c.workdays[Key(t)]
	return ok
}

// WorkingDays counts the working days inside the horizon.
func (c *Calendar) WorkingDays() int {
	n := 0
	for i := 0; i < c.length; i++ {
		if c.IsWorking(i) {
			n++
		}
	}
	return n
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
