package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/prodplan/core/metrics"
	"github.com/kilianp07/prodplan/core/runlog"
	"github.com/kilianp07/prodplan/infra/milp"
	"github.com/kilianp07/prodplan/infra/monitoring"
	"github.com/kilianp07/prodplan/infra/mqtt"
)

// EnvPrefix prefixes the environment variables overriding file values.
// K_PLAN__YEAR=2026 sets plan.year.
const EnvPrefix = "K_"

type Config struct {
	Plan    PlanConfig              `json:"plan"`
	Solver  milp.Config             `json:"solver"`
	RunLog  runlog.Config           `json:"runlog"`
	Metrics metrics.Config          `json:"metrics"`
	Sentry  monitoring.SentryConfig `json:"sentry"`
	MQTT    mqtt.Config             `json:"mqtt"`
	HTTP    HTTPConfig              `json:"http"`
	Logging LoggingConfig           `json:"logging"`
}

// Load reads path, applies environment overrides, then defaults and
// validation. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Plan.SetDefaults()
	c.Solver.SetDefaults()
	c.RunLog.SetDefaults()
	c.MQTT.SetDefaults()
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Plan.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("plan: %w", err))
	}
	switch c.RunLog.Backend {
	case runlog.BackendNone, runlog.BackendJSONL, runlog.BackendRotating, runlog.BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("runlog: unknown backend %s", c.RunLog.Backend))
	}
	if c.RunLog.Backend != runlog.BackendNone && c.RunLog.Path == "" {
		errs = append(errs, fmt.Errorf("runlog: path is required"))
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		errs = append(errs, fmt.Errorf("sentry: traces_sample_rate must be within [0,1]"))
	}
	return errors.Join(errs...)
}

// HTTPConfig configures the planning API server.
type HTTPConfig struct {
	Address string `json:"address"`
	// Token, when set, must be sent as a bearer token on every API call.
	Token               string `json:"token"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
	// RetainedRuns caps the finished async runs kept for polling.
	RetainedRuns int `json:"retained_runs"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 10
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = 120
	}
	if c.RetainedRuns <= 0 {
		c.RetainedRuns = 256
	}
}
