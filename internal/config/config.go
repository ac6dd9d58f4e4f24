// Package config handles configuration loading for the TaskArena daemon.
// Values come from an optional YAML file overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for the daemon.
type Config struct {
	// StateDir is the root for all durable state: queue, patches, logs, rules.
	StateDir string `yaml:"state_dir"`

	// ListenHost is the address the intake endpoint binds to.
	// The endpoint is unauthenticated, so this should stay on loopback.
	ListenHost string `yaml:"listen_host"`

	// ListenPort is the intake HTTP port.
	ListenPort int `yaml:"listen_port"`

	// Workers is the number of concurrent worker loops.
	Workers int `yaml:"workers"`

	// PollInterval is the minimum idle delay between inbox scans.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxBackoff caps the idle backoff when the inbox stays empty.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// ToolPath overrides discovery of the code-generation CLI binary.
	ToolPath string `yaml:"tool_path"`

	// ProbeTimeout bounds the one-time capability probe of the tool.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// StepTimeout bounds a single plan or apply invocation. Zero means no limit.
	StepTimeout time.Duration `yaml:"step_timeout"`

	// OTELEndpoint is the OTLP collector address. Empty disables tracing.
	OTELEndpoint string `yaml:"otel_endpoint"`
}

// Defaults that match the behaviour of the hosted service.
const (
	DefaultListenHost   = "127.0.0.1"
	DefaultListenPort   = 8787
	DefaultWorkers      = 4
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxBackoff   = 5 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// Load reads configuration from an optional YAML file at path, then applies
// environment variable overrides. An empty path means env-only.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenHost:   DefaultListenHost,
		ListenPort:   DefaultListenPort,
		Workers:      DefaultWorkers,
		PollInterval: DefaultPollInterval,
		MaxBackoff:   DefaultMaxBackoff,
		ProbeTimeout: DefaultProbeTimeout,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("TASKARENA_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfg.StateDir = filepath.Join(home, ".taskarena")
	}

	if v := os.Getenv("TASKARENA_HOST"); v != "" {
		cfg.ListenHost = v
	}

	if v := os.Getenv("TASKARENA_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TASKARENA_PORT: %w", err)
		}
		cfg.ListenPort = p
	}

	// TA_WORKERS is the historical name; values below 1 are clamped, not rejected.
	if v := os.Getenv("TA_WORKERS"); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TA_WORKERS: %w", err)
		}
		cfg.Workers = w
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if v := os.Getenv("TASKARENA_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TASKARENA_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}

	if v := os.Getenv("TASKARENA_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TASKARENA_MAX_BACKOFF: %w", err)
		}
		cfg.MaxBackoff = d
	}

	// CLAUDE_CLI is honoured for compatibility with existing installs.
	if v := os.Getenv("TASKARENA_TOOL"); v != "" {
		cfg.ToolPath = v
	} else if v := os.Getenv("CLAUDE_CLI"); v != "" {
		cfg.ToolPath = v
	}

	if v := os.Getenv("TASKARENA_STEP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TASKARENA_STEP_TIMEOUT: %w", err)
		}
		cfg.StepTimeout = d
	}

	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll_interval must be positive")
	}
	if cfg.MaxBackoff < cfg.PollInterval {
		return nil, fmt.Errorf("max_backoff must not be shorter than poll_interval")
	}

	return cfg, nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// QueueDir returns the root of the four queue directories.
func (c *Config) QueueDir() string { return filepath.Join(c.StateDir, "queue") }

// PatchDir returns the root of per-job artifact directories.
func (c *Config) PatchDir() string { return filepath.Join(c.StateDir, "patches") }

// RunLogPath returns the path of the append-only run log.
func (c *Config) RunLogPath() string { return filepath.Join(c.StateDir, "logs", "run.jsonl") }

// SystemRulesPath returns the path of the system-owned rules file.
func (c *Config) SystemRulesPath() string { return filepath.Join(c.StateDir, "rules", "agents.md") }
