// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Static    StaticConfig    `mapstructure:"static"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownSeconds int `mapstructure:"shutdown_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store, which is only suitable for local development.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifetime string `mapstructure:"max_conn_lifetime"`
	MigrationsDir   string `mapstructure:"migrations_dir"`
}

// RateLimitConfig tunes the per-IP daily submission ceiling. Non-positive
// values fall back to the limiter's default at evaluation time, on purpose:
// a misconfigured deploy should throttle, not fail open.
type RateLimitConfig struct {
	DailyLimit int `mapstructure:"daily_limit"`
}

// StaticConfig points at the pre-built landing page assets served on
// non-API paths.
type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WAITLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.migrations_dir", "migrations")
	v.SetDefault("rate_limit.daily_limit", 10)
	v.SetDefault("static.dir", "public")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ShutdownSeconds <= 0 {
		return fmt.Errorf("server.shutdown_seconds must be > 0")
	}
	if c.DB.MaxConns < 0 || c.DB.MinConns < 0 {
		return fmt.Errorf("db connection counts must be >= 0")
	}
	if _, err := time.ParseDuration(c.DB.MaxConnLifetime); c.DB.MaxConnLifetime != "" && err != nil {
		return fmt.Errorf("db.max_conn_lifetime: %w", err)
	}
	if c.Static.Dir == "" {
		return fmt.Errorf("static.dir must be set")
	}
	return nil
}

// ConnLifetime converts the configured lifetime into a duration, zero when
// unset.
func (c Config) ConnLifetime() time.Duration {
	d, err := time.ParseDuration(c.DB.MaxConnLifetime)
	if err != nil {
		return 0
	}
	return d
}

// ShutdownTimeout converts the drain budget into a duration.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
