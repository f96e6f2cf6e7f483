package model

import "fmt"

// DemandSource is a recurring shipment obligation towards one customer city.
type DemandSource struct {
	Name                string  `json:"name" yaml:"name"`
	QuantityPerShipment float64 `json:"quantity_per_shipment" yaml:"quantity_per_shipment"`
	CycleLengthDays     int     `json:"cycle_length_days" yaml:"cycle_length_days"`
	// PreferredStartDay is 1-indexed. Zero means the scheduler is free to choose.
	PreferredStartDay int `json:"preferred_start_day,omitempty" yaml:"preferred_start_day,omitempty"`
}

// HasPreferredStart reports whether the source pins its first shipment day.
func (s DemandSource) HasPreferredStart() bool { return s.PreferredStartDay > 0 }

// NormalizedPreferredStart folds the preferred day into [1, CycleLengthDays].
// It returns 0 when no preferred day is set.
func (s DemandSource) NormalizedPreferredStart() int {
	if !s.HasPreferredStart() || s.CycleLengthDays <= 0 {
		return 0
	}
	return (s.PreferredStartDay-1)%s.CycleLengthDays + 1
}

// ShipmentDays returns the day indices (0-based) on which the source ships
// when its cycle starts on the 1-indexed day start.
func (s DemandSource) ShipmentDays(start int) []int {
	if s.CycleLengthDays <= 0 || start <= 0 {
		return nil
	}
	var days []int
	for d := start - 1; d < Horizon; d += s.CycleLengthDays {
		days = append(days, d)
	}
	return days
}

// Validate checks the source definition.
func (s DemandSource) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("demand source name is required")
	}
	if s.CycleLengthDays <= 0 {
		return fmt.Errorf("demand source %s: cycle_length_days must be positive", s.Name)
	}
	if s.QuantityPerShipment < 0 {
		return fmt.Errorf("demand source %s: quantity_per_shipment must not be negative", s.Name)
	}
	if s.PreferredStartDay < 0 {
		return fmt.Errorf("demand source %s: preferred_start_day must not be negative", s.Name)
	}
	return nil
}

// ShipmentDetail is the share of a day's shipment going to one city.
type ShipmentDetail struct {
	City     string  `json:"city" yaml:"city"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
}

// TotalQuantity sums the quantities of the details.
func TotalQuantity(details []ShipmentDetail) float64 {
	var sum float64
	for _, d := range details {
		sum += d.Quantity
	}
	return sum
}
