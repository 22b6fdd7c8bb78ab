package config

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	// Engine tunes run execution.
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Tracker selects where run histories are persisted.
	Tracker TrackerConfig `yaml:"tracker" env:"TRACKER"`

	// Database holds the relational backend for the database tracker.
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Redis holds the session store backend.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Workflows lists definition documents loaded at startup.
	Workflows []string `yaml:"workflows" env:"WORKFLOWS"`
}

// EngineConfig tunes run execution.
type EngineConfig struct {
	// BatchConcurrency caps parallel runs in a batch. Zero means one run
	// per CPU.
	BatchConcurrency int `yaml:"batch_concurrency" env:"BATCH_CONCURRENCY"`

	// RateLimit caps node dispatches per second across all runs. Zero
	// disables throttling.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`

	// RateBurst is the dispatch burst allowance when RateLimit is set.
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`

	// MetricsNamespace prefixes Prometheus metric names. Empty disables
	// metrics collection.
	MetricsNamespace string `yaml:"metrics_namespace" env:"METRICS_NAMESPACE"`
}

// TrackerConfig selects the run history backend.
type TrackerConfig struct {
	// Backend: memory, database, mongo or none.
	Backend string `yaml:"backend" env:"BACKEND"`

	// MongoURI and MongoDatabase apply to the mongo backend.
	MongoURI      string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase string `yaml:"mongo_database" env:"MONGO_DATABASE"`
}

// DatabaseConfig holds relational database settings.
type DatabaseConfig struct {
	// Driver: sqlite, postgres or mysql.
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Name     string `yaml:"name" env:"NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`

	// Path is the database file for the sqlite driver.
	Path string `yaml:"path" env:"PATH"`
}

// DSN builds the driver-specific connection string.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		if d.Path == "" {
			return ":memory:"
		}
		return d.Path
	default:
		return ""
	}
}

// RedisConfig holds session store settings.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	PoolSize  int    `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`

	// SessionTTL expires idle sessions. Zero keeps them forever.
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			BatchConcurrency: 0,
			RateLimit:        0,
			RateBurst:        1,
			MetricsNamespace: "flowgraph",
		},
		Tracker: TrackerConfig{
			Backend:       "memory",
			MongoDatabase: "flowgraph",
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			KeyPrefix:  "flowgraph:session:",
			SessionTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "flowgraph",
			SampleRate:  1.0,
		},
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Tracker.Backend {
	case "", "none", "memory":
	case "database":
		switch c.Database.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
		}
	case "mongo":
		if c.Tracker.MongoURI == "" {
			return fmt.Errorf("tracker backend mongo requires mongo_uri")
		}
	default:
		return fmt.Errorf("unsupported tracker backend: %q", c.Tracker.Backend)
	}

	if c.Engine.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be within [0, 1]")
	}
	return nil
}
