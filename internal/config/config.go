// Package config defines service configuration and its loading.
package config

import (
	"runtime"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the persistence job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`
	// IdempotencySize caps the idempotency-key cache.
	IdempotencySize int `koanf:"idempotency_size"`

	// StoreDriver is "memory" or "postgres".
	StoreDriver string `koanf:"store_driver"`
	// PostgresDSN is the lib/pq connection string.
	PostgresDSN          string `koanf:"postgres_dsn"`
	PostgresMaxOpenConns int    `koanf:"postgres_max_open_conns"`
	PostgresMaxIdleConns int    `koanf:"postgres_max_idle_conns"`

	// AMQPURL enables the RabbitMQ marker hand-off when set.
	AMQPURL        string `koanf:"amqp_url"`
	AMQPExchange   string `koanf:"amqp_exchange"`
	AMQPRoutingKey string `koanf:"amqp_routing_key"`

	// RateLimitRPS and RateLimitBurst throttle API requests per client.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tagging rule tunables.
	KickoutDelaySeconds  float64 `koanf:"kickout_delay_seconds"`
	FoulOffsetSeconds    float64 `koanf:"foul_offset_seconds"`
	KickoutLookback      int     `koanf:"kickout_lookback"`
	KickoutWindowSeconds float64 `koanf:"kickout_window_seconds"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		IdempotencySize:      10_000,
		StoreDriver:          StoreMemory,
		PostgresMaxOpenConns: 10,
		PostgresMaxIdleConns: 5,
		AMQPExchange:         "matchtag.markers",
		AMQPRoutingKey:       "markers.ready",
		RateLimitRPS:         50,
		RateLimitBurst:       100,
		CORSAllowedOrigins:   []string{"*"},
		KickoutDelaySeconds:  1,
		FoulOffsetSeconds:    0.1,
		KickoutLookback:      3,
		KickoutWindowSeconds: 60,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.QueueSize < 1:
		return invalid("queue_size must be positive")
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive")
	case c.StoreDriver != StoreMemory && c.StoreDriver != StorePostgres:
		return invalid("store_driver must be memory or postgres, got %q", c.StoreDriver)
	case c.StoreDriver == StorePostgres && c.PostgresDSN == "":
		return invalid("postgres_dsn is required for the postgres store")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return invalid("rate limits must not be negative")
	case c.KickoutDelaySeconds < 0 || c.FoulOffsetSeconds < 0:
		return invalid("tagging offsets must not be negative")
	}
	return nil
}
