package runlog

import "fmt"

// Supported history backends.
const (
	BackendNone     = "none"
	BackendJSONL    = "jsonl"
	BackendRotating = "jsonl_rotating"
	BackendSQLite   = "sqlite"
)

// Config selects and configures the run history backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = "plan_runs.db"
		default:
			c.Path = "plan_runs.jsonl"
		}
	}
	if c.Backend == BackendRotating && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
}

// Open returns the store described by cfg.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendNone:
		return NopStore{}, nil
	case BackendJSONL, "":
		return NewJSONLStore(cfg.Path)
	case BackendRotating:
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("runlog: unknown backend %q", cfg.Backend)
	}
}
