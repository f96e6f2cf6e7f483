package metrics

import "github.com/kilianp07/prodplan/core/factory"

// Config defines settings for run metric sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// RecordDays forwards the 365 day records of each run to sinks that support it.
	RecordDays bool `json:"record_days" yaml:"record_days"`
}
