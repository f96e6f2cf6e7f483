package model

import (
	"errors"
	"fmt"
	"math"
)

// ProductModel is one variant built on the line.
type ProductModel struct {
	Name       string  `json:"name" yaml:"name"`
	UnitCost   float64 `json:"unit_cost" yaml:"unit_cost"`
	BuildRatio float64 `json:"build_ratio" yaml:"build_ratio"`
}

// WorkingCalendar answers whether a day index of the horizon is a working day.
type WorkingCalendar interface {
	IsWorking(day int) bool
	WorkingDays() int
	Len() int
}

// Parameters drives one simulation run. Values are read-only during the run.
type Parameters struct {
	Calendar WorkingCalendar `json:"-"`

	StandardHours         float64        `json:"standard_hours"`
	EmployeeCount         int            `json:"employee_count"`
	LaborRate             float64        `json:"labor_rate"`
	HoldingCostRate       float64        `json:"holding_cost_rate"`
	AnnualMfgOverhead     float64        `json:"annual_mfg_overhead"`
	AnnualSGA             float64        `json:"annual_sga"`
	Models                []ProductModel `json:"models"`
	TargetDailyProduction float64        `json:"target_daily_production"`
	MaxStandardProduction float64        `json:"max_standard_production"`
}

// ValidateCaps checks the two production caps that every run requires.
func (p Parameters) ValidateCaps() error {
	var errs []error
	if p.TargetDailyProduction <= 0 || math.IsNaN(p.TargetDailyProduction) {
		errs = append(errs, fmt.Errorf("target_daily_production must be > 0, got %v", p.TargetDailyProduction))
	}
	if p.MaxStandardProduction <= 0 || math.IsNaN(p.MaxStandardProduction) {
		errs = append(errs, fmt.Errorf("max_standard_production must be > 0, got %v", p.MaxStandardProduction))
	}
	return errors.Join(errs...)
}

// Validate checks every parameter needed by the simulation.
func (p Parameters) Validate() error {
	errs := []error{p.ValidateCaps()}
	if p.StandardHours <= 0 {
		errs = append(errs, fmt.Errorf("standard_hours must be > 0, got %v", p.StandardHours))
	}
	if p.EmployeeCount < 0 {
		errs = append(errs, fmt.Errorf("employee_count must not be negative"))
	}
	if p.LaborRate < 0 || p.HoldingCostRate < 0 || p.AnnualMfgOverhead < 0 || p.AnnualSGA < 0 {
		errs = append(errs, fmt.Errorf("cost parameters must not be negative"))
	}
	if p.Calendar == nil {
		errs = append(errs, fmt.Errorf("working-day calendar is required"))
	} else if p.Calendar.Len() < Horizon {
		errs = append(errs, fmt.Errorf("calendar covers %d days, need %d", p.Calendar.Len(), Horizon))
	}
	for _, m := range p.Models {
		if m.UnitCost < 0 || m.BuildRatio < 0 {
			errs = append(errs, fmt.Errorf("model %s: unit_cost and build_ratio must not be negative", m.Name))
		}
	}
	return errors.Join(errs...)
}

// WeightedUnitCost is the build-ratio weighted unit cost of the product mix.
func (p Parameters) WeightedUnitCost() float64 {
	var sum float64
	for _, m := range p.Models {
		sum += m.UnitCost * m.BuildRatio
	}
	return sum
}

// UnitsPerHour is the standard production rate of the line.
func (p Parameters) UnitsPerHour() float64 {
	return p.MaxStandardProduction / p.StandardHours
}

// MaxExtendedHours bounds the operating hours of an overtime day.
func (p Parameters) MaxExtendedHours() float64 {
	return math.Min(24, math.Max(12, 1.5*p.StandardHours))
}

// StandardDailyProduction is the Tier 1 output of a regular working day.
func (p Parameters) StandardDailyProduction() float64 {
	return math.Min(p.TargetDailyProduction, p.MaxStandardProduction)
}

func (p Parameters) overheadDays() float64 {
	if p.Calendar != nil {
		if w := p.Calendar.WorkingDays(); w > 0 {
			return float64(w)
		}
	}
	return Horizon
}

// DailyMfgOverhead spreads the annual manufacturing overhead across working days.
func (p Parameters) DailyMfgOverhead() float64 { return p.AnnualMfgOverhead / p.overheadDays() }

// DailySGA spreads the annual SG&A expenses across working days.
func (p Parameters) DailySGA() float64 { return p.AnnualSGA / p.overheadDays() }

// DailyHoldingRate converts the annual holding rate into a daily rate.
func (p Parameters) DailyHoldingRate() float64 { return p.HoldingCostRate / Horizon }
