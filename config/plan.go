package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/prodplan/core/calendar"
	"github.com/kilianp07/prodplan/core/model"
	"github.com/kilianp07/prodplan/core/planner"
)

// CalendarConfig lists the non-working weekdays and the date exceptions of
// the planning year. Dates use the YYYY-MM-DD layout.
type CalendarConfig struct {
	// Weekends names non-working weekdays. Unset means saturday and sunday,
	// an empty list means every weekday works.
	Weekends         []string `json:"weekends" yaml:"weekends"`
	Holidays         []string `json:"holidays" yaml:"holidays"`
	ExtraWorkingDays []string `json:"extra_working_days" yaml:"extra_working_days"`
	// AllWorking ignores the other fields and makes every day a working day.
	AllWorking bool `json:"all_working" yaml:"all_working"`
}

// Options converts the configuration into calendar build options.
func (c CalendarConfig) Options() (calendar.Options, error) {
	opts := calendar.Options{Holidays: c.Holidays, ExtraWorkingDays: c.ExtraWorkingDays}
	if c.Weekends == nil {
		return opts, nil
	}
	opts.Weekends = make([]time.Weekday, 0, len(c.Weekends))
	for _, name := range c.Weekends {
		wd, err := parseWeekday(name)
		if err != nil {
			return calendar.Options{}, err
		}
		opts.Weekends = append(opts.Weekends, wd)
	}
	return opts, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// PlanConfig holds the production parameters and demand sources of a run.
// The same document is accepted as the body of the planning API.
type PlanConfig struct {
	Year     int            `json:"year" yaml:"year"`
	Calendar CalendarConfig `json:"calendar" yaml:"calendar"`

	StandardHours         float64              `json:"standard_hours" yaml:"standard_hours"`
	EmployeeCount         int                  `json:"employee_count" yaml:"employee_count"`
	LaborRate             float64              `json:"labor_rate" yaml:"labor_rate"`
	HoldingCostRate       float64              `json:"holding_cost_rate" yaml:"holding_cost_rate"`
	AnnualMfgOverhead     float64              `json:"annual_mfg_overhead" yaml:"annual_mfg_overhead"`
	AnnualSGA             float64              `json:"annual_sga" yaml:"annual_sga"`
	TargetDailyProduction float64              `json:"target_daily_production" yaml:"target_daily_production"`
	MaxStandardProduction float64              `json:"max_standard_production" yaml:"max_standard_production"`
	Models                []model.ProductModel `json:"models" yaml:"models"`
	Sources               []model.DemandSource `json:"sources" yaml:"sources"`
}

// SetDefaults applies sane defaults.
func (c *PlanConfig) SetDefaults() {
	if c.Year == 0 {
		c.Year = time.Now().Year()
	}
	if c.StandardHours == 0 {
		c.StandardHours = 8
	}
}

// Validate checks the year and the calendar. Production parameters and
// sources are checked by the planner.
func (c PlanConfig) Validate() error {
	var errs []error
	if c.Year < 1 || c.Year > 9999 {
		errs = append(errs, fmt.Errorf("year must be within [1,9999], got %d", c.Year))
	}
	if _, err := c.Calendar.Options(); err != nil {
		errs = append(errs, fmt.Errorf("calendar: %w", err))
	}
	return errors.Join(errs...)
}

// BuildCalendar resolves the working days of the configured year.
func (c PlanConfig) BuildCalendar() (*calendar.Calendar, error) {
	if c.Calendar.AllWorking {
		return calendar.AllWorking(time.Date(c.Year, time.January, 1, 0, 0, 0, 0, time.UTC)), nil
	}
	opts, err := c.Calendar.Options()
	if err != nil {
		return nil, err
	}
	return calendar.Build(c.Year, opts)
}

// Parameters converts the configuration into simulation parameters bound to cal.
func (c PlanConfig) Parameters(cal model.WorkingCalendar) model.Parameters {
	return model.Parameters{
		Calendar:              cal,
		StandardHours:         c.StandardHours,
		EmployeeCount:         c.EmployeeCount,
		LaborRate:             c.LaborRate,
		HoldingCostRate:       c.HoldingCostRate,
		AnnualMfgOverhead:     c.AnnualMfgOverhead,
		AnnualSGA:             c.AnnualSGA,
		Models:                c.Models,
		TargetDailyProduction: c.TargetDailyProduction,
		MaxStandardProduction: c.MaxStandardProduction,
	}
}

// Request builds the planning request described by the configuration.
func (c PlanConfig) Request() (planner.Request, error) {
	cal, err := c.BuildCalendar()
	if err != nil {
		return planner.Request{}, &planner.ValidationError{Err: fmt.Errorf("calendar: %w", err)}
	}
	return planner.Request{
		Sources: c.Sources,
		Params:  c.Parameters(cal),
		Year:    c.Year,
	}, nil
}
