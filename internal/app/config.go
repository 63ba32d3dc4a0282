package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything an App instance needs to run. Environment
// variables supply the defaults, CLI flags override them.
type Config struct {
	// DictionaryPath is the command dictionary XML document to load.
	DictionaryPath string
	// RulesDir holds one .hcl expansion-logic file per activity type,
	// named <ActivityType>.hcl.
	RulesDir string
	// PlanPath is the JSON plan file: activity schemas plus the simulated
	// activities of one dataset.
	PlanPath string
	// SeqID names the sequence the run builds.
	SeqID string
	// OutputPath receives the seqJson document; empty means stdout.
	OutputPath string
	// EmitEDSL additionally regenerates sequence source from the seqJson.
	EmitEDSL bool

	HealthcheckPort int           `env:"SEQGEN_HEALTHCHECK_PORT"`
	LogFormat       string        `env:"SEQGEN_LOG_FORMAT" envDefault:"json"`
	LogLevel        string        `env:"SEQGEN_LOG_LEVEL" envDefault:"info"`
	Workers         int           `env:"SEQGEN_WORKERS"`
	WorkerTimeout   time.Duration `env:"SEQGEN_WORKER_TIMEOUT" envDefault:"30s"`
	CacheSize       int           `env:"SEQGEN_CACHE_SIZE" envDefault:"1024"`
	StoreDriver     string        `env:"SEQGEN_STORE" envDefault:"memory"`
	ArtifactDriver  string        `env:"SEQGEN_ARTIFACTS" envDefault:"memory"`
	DataDir         string        `env:"SEQGEN_DATA_DIR" envDefault:".seqgen"`
}

// ConfigFromEnv returns a Config seeded from the SEQGEN_* environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment configuration: %w", err)
	}
	return cfg, nil
}

// Validate normalizes and checks the configuration.
func (c *Config) Validate() error {
	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", c.LogFormat)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn' or 'error'", c.LogLevel)
	}
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid store driver %q: must be 'memory' or 'sqlite'", c.StoreDriver)
	}
	switch c.ArtifactDriver {
	case "memory", "fs":
	default:
		return fmt.Errorf("invalid artifact driver %q: must be 'memory' or 'fs'", c.ArtifactDriver)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
