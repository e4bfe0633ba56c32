package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Backend     BackendConfig `toml:"backend"`
	Session     SessionConfig `toml:"session"`
	Poller      PollerConfig  `toml:"poller"`
	Metrics     MetricsConfig `toml:"metrics"`
	Logging     LoggingConfig `toml:"logging"`
}

// BackendConfig points the engine at the partner master-data backend
type BackendConfig struct {
	BaseURL   string `toml:"base_url" validate:"required,url"` // e.g. "https://partners.example.com/api"
	Timeout   string `toml:"timeout"`                          // HTTP timeout, e.g. "30s"
	RateLimit int    `toml:"rate_limit" validate:"min=1"`      // requests per second
	UserAgent string `toml:"user_agent"`
}

// SessionConfig seeds the bearer credential store
type SessionConfig struct {
	Token    string `toml:"token"`     // usually supplied via AUDITRECON_SESSION_TOKEN
	LoginURL string `toml:"login_url"` // where users re-authenticate after session expiry
}

// PollerConfig controls the status polling loop
type PollerConfig struct {
	Interval    string `toml:"interval"`                     // fixed tick interval, e.g. "5s"
	Concurrency int    `toml:"concurrency" validate:"min=1"` // max in-flight fetches per tick
}

// MetricsConfig controls the Prometheus listener
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port" validate:"min=0,max=65535"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the built-in defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Backend: BackendConfig{
			Timeout:   "30s",
			RateLimit: 10,
			UserAgent: "auditrecon/" + GetVersion(),
		},
		Poller: PollerConfig{
			Interval:    "5s",
			Concurrency: 8,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 ->
// file2 -> ... -> env. Later files override earlier files; environment
// variables override everything from files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AUDITRECON_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if baseURL := os.Getenv("AUDITRECON_BACKEND_BASE_URL"); baseURL != "" {
		config.Backend.BaseURL = baseURL
	}
	if timeout := os.Getenv("AUDITRECON_BACKEND_TIMEOUT"); timeout != "" {
		config.Backend.Timeout = timeout
	}
	if rateLimit := os.Getenv("AUDITRECON_BACKEND_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Backend.RateLimit = rl
		}
	}

	if token := os.Getenv("AUDITRECON_SESSION_TOKEN"); token != "" {
		config.Session.Token = token
	}

	if interval := os.Getenv("AUDITRECON_POLLER_INTERVAL"); interval != "" {
		config.Poller.Interval = interval
	}
	if concurrency := os.Getenv("AUDITRECON_POLLER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Poller.Concurrency = c
		}
	}

	if enabled := os.Getenv("AUDITRECON_METRICS_ENABLED"); enabled != "" {
		config.Metrics.Enabled = enabled == "true" || enabled == "1"
	}
	if port := os.Getenv("AUDITRECON_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	if level := os.Getenv("AUDITRECON_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("AUDITRECON_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("AUDITRECON_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// Validate checks the configuration after all overrides are applied
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
		return fmt.Errorf("invalid backend timeout %q: %w", c.Backend.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Poller.Interval); err != nil {
		return fmt.Errorf("invalid poller interval %q: %w", c.Poller.Interval, err)
	}

	return nil
}

// BackendTimeout returns the parsed backend HTTP timeout
func (c *Config) BackendTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Backend.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// PollInterval returns the parsed poller tick interval
func (c *Config) PollInterval() time.Duration {
	if d, err := time.ParseDuration(c.Poller.Interval); err == nil && d > 0 {
		return d
	}
	return 5 * time.Second
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
