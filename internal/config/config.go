package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the concierge service. Environment
// variables are parsed from the CONCIERGE_ prefix, e.g. CONCIERGE_HTTP_PORT.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage. DBDriver selects postgres or sqlite; "auto" derives sqlite
	// when no Postgres DSN is configured.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"concierge.db"`

	// Knowledge base / memory index (Weaviate, host:port without scheme).
	WeaviateURL string `envconfig:"WEAVIATE_URL" default:"localhost:8081"`

	// Embeddings and language model (Ollama).
	OllamaURL  string  `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	EmbedModel string  `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	LLMModel   string  `envconfig:"LLM_MODEL" default:"llama3.1"`
	SearchAlpha float32 `envconfig:"SEARCH_ALPHA" default:"0.6"`

	// Session state and crisis alerts (Redis).
	RedisAddr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	CrisisAlertChannel string `envconfig:"CRISIS_ALERT_CHANNEL" default:"alerts:crisis"`

	// Booking windows. SlotWindowDays is the canonical non-urgent window;
	// urgent cases always use UrgentWindowDays.
	SlotWindowDays   int `envconfig:"SLOT_WINDOW_DAYS" default:"5"`
	UrgentWindowDays int `envconfig:"URGENT_WINDOW_DAYS" default:"2"`

	// Deadline reminder sweep horizon and cron schedule.
	DeadlineHorizonDays int    `envconfig:"DEADLINE_HORIZON_DAYS" default:"14"`
	DeadlineSweepSpec   string `envconfig:"DEADLINE_SWEEP_SPEC" default:"0 8 * * *"`

	// CollaboratorTimeoutSeconds bounds each collaborator call; timeout is
	// treated as failure and degraded, never fatal to the turn.
	CollaboratorTimeoutSeconds int `envconfig:"COLLABORATOR_TIMEOUT_SECONDS" default:"10"`

	// Local service lookup (postcodes.io). Empty means the public API.
	ServicesURL string `envconfig:"SERVICES_URL" default:""`

	// Deadline reminders are published to Redis for the ops channel.
	DeadlineAlertChannel string `envconfig:"DEADLINE_ALERT_CHANNEL" default:"alerts:deadlines"`

	// Health probe cadence.
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"5"`
}

// ResolveDefaults validates derived settings and fills "auto" values.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}
	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.SlotWindowDays <= 0 || c.UrgentWindowDays <= 0 {
		return fmt.Errorf("slot windows must be positive")
	}
	if c.SearchAlpha < 0 || c.SearchAlpha > 1 {
		return fmt.Errorf("SEARCH_ALPHA must be in [0,1], got %f", c.SearchAlpha)
	}
	return nil
}

// New creates a Config by parsing CONCIERGE_-prefixed environment variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CONCIERGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("weaviate_url", cfg.WeaviateURL).
		Str("ollama_url", cfg.OllamaURL).
		Str("llm_model", cfg.LLMModel).
		Int("slot_window_days", cfg.SlotWindowDays).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config suitable for unit tests.
func NewForTesting() *Config {
	cfg := &Config{
		Environment:                EnvTesting,
		HTTPPort:                   8080,
		DBDriver:                   "sqlite",
		SQLitePath:                 ":memory:",
		WeaviateURL:                "localhost:8082",
		OllamaURL:                  "http://localhost:11434",
		EmbedModel:                 "mxbai-embed-large",
		LLMModel:                   "llama3.1",
		SearchAlpha:                0.6,
		RedisAddr:                  "localhost:6379",
		CrisisAlertChannel:         "alerts:crisis",
		SlotWindowDays:             5,
		UrgentWindowDays:           2,
		DeadlineHorizonDays:        14,
		DeadlineSweepSpec:          "0 8 * * *",
		CollaboratorTimeoutSeconds: 2,
		DeadlineAlertChannel:       "alerts:deadlines",
		HealthIntervalSeconds:      1,
		HealthProbeTimeoutSeconds:  1,
	}
	return cfg
}

// IsTesting returns true if the environment is set to testing.
func (c *Config) IsTesting() bool { return c.Environment == EnvTesting }

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// GetHTTPAddr returns the HTTP server listen address.
func (c *Config) GetHTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }
