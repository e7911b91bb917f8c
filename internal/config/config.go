// Package config holds the engine configuration value object. Every component
// receives its knobs through an explicit Config; there is no package-level
// mutable state.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Isolate bounds the log isolator's boundary heuristics. All values are in
// bytes of log text.
type Isolate struct {
	// ExceptionLookahead bounds how far past the end marker the isolator
	// searches for an exception signature.
	ExceptionLookahead int `yaml:"exception_lookahead"`
	// ExceptionTail is the trailing buffer kept after an exception signature
	// so the full stack trace survives.
	ExceptionTail int `yaml:"exception_tail"`
	// FailureTail is the trailing buffer kept after a "test complete"
	// phrase when no exception signature follows the end marker.
	FailureTail int `yaml:"failure_tail"`
	// CompletionTail is the span kept past the end marker when neither an
	// exception nor a completion phrase is found.
	CompletionTail int `yaml:"completion_tail"`
}

// Config is the full engine configuration.
type Config struct {
	// HistoryWindow is W: the fixed length of every history vector.
	HistoryWindow int `yaml:"history_window"`
	// MinFailures is the recomputed-count threshold for a test to qualify
	// as recurring.
	MinFailures int `yaml:"min_failures"`
	// Parallelism caps concurrent per-build reconciliation tasks.
	// Zero or one means serial.
	Parallelism int `yaml:"parallelism"`

	StorePath        string `yaml:"store_path"`
	DashboardBaseURL string `yaml:"dashboard_base_url"`

	Isolate Isolate `yaml:"isolate"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		HistoryWindow:    10,
		MinFailures:      5,
		Parallelism:      1,
		StorePath:        ".triage/triage.db",
		DashboardBaseURL: "https://qa.dashboard.example.com",
		Isolate: Isolate{
			ExceptionLookahead: 20000,
			ExceptionTail:      2000,
			FailureTail:        1000,
			CompletionTail:     5000,
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. A missing path returns defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays the flaky-window knobs from the environment. These two
// are operator-tuned per deployment, so they get an env escape hatch.
func (c *Config) applyEnv() {
	if v, ok := intEnv("TRIAGE_LAST_RUNS"); ok {
		c.HistoryWindow = v
	}
	if v, ok := intEnv("TRIAGE_MIN_FAILURES"); ok {
		c.MinFailures = v
	}
}

func (c *Config) validate() error {
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive, got %d", c.HistoryWindow)
	}
	if c.MinFailures < 0 {
		return fmt.Errorf("min_failures must not be negative, got %d", c.MinFailures)
	}
	return nil
}

func intEnv(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
