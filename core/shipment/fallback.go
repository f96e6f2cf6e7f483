package shipment

import "github.com/kilianp07/prodplan/core/model"

// FallbackStarts spreads the sources linearly across their cycle: source i of
// n starts on floor(i/n*cycle)+1 unless it has a preferred day.
func FallbackStarts(sources []model.DemandSource) []int {
	n := len(sources)
	starts := make([]int, n)
	for i, s := range sources {
		if p := s.NormalizedPreferredStart(); p > 0 {
			starts[i] = p
			continue
		}
		starts[i] = i*s.CycleLengthDays/n + 1
	}
	return starts
}

// Apply resets the scheduled shipments of days and books every source from
// its start day.
func Apply(sources []model.DemandSource, starts []int, days []model.DayRecord) {
	for i := range days {
		days[i].ClearScheduled()
	}
	for i, s := range sources {
		if s.QuantityPerShipment <= 0 {
			continue
		}
		for _, d := range s.ShipmentDays(starts[i]) {
			if d < len(days) {
				days[d].AddScheduled(s.Name, s.QuantityPerShipment)
			}
		}
	}
}

// PeakDemand returns the largest scheduled quantity of any day.
func PeakDemand(days []model.DayRecord) float64 {
	var peak float64
	for _, d := range days {
		if d.ScheduledShipmentQty > peak {
			peak = d.ScheduledShipmentQty
		}
	}
	return peak
}
