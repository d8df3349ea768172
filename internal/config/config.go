// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"motor-tariff/core/input"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
	"motor-tariff/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// HTTP contains server configuration
	HTTP HTTPConfig `json:"http"`

	// Database contains the pricing database connection
	Database DatabaseConfig `json:"database"`

	// Redis contains the publication channel settings
	Redis RedisConfig `json:"redis"`

	// Tariff contains tariff table settings
	Tariff TariffConfig `json:"tariff"`

	// Fees are the add-on service fees
	Fees quote.AddOnFees `json:"fees"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// HTTPConfig contains server settings
type HTTPConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`

	// ShutdownSeconds bounds graceful shutdown
	ShutdownSeconds int `json:"shutdown_seconds"`

	// CORSOrigins are the browser origins allowed to call the API
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

// DatabaseConfig contains Postgres settings
type DatabaseConfig struct {
	// DSN is the connection string; empty disables the database store
	DSN string `json:"dsn,omitempty"`

	// MaxConns caps the pool size
	MaxConns int32 `json:"max_conns"`
}

// RedisConfig contains pub/sub settings
type RedisConfig struct {
	// Addr is host:port; empty disables publication announcements
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`

	// Channel is where new table versions are announced
	Channel string `json:"channel"`
}

// TariffConfig contains tariff table settings
type TariffConfig struct {
	// File is an HCL tariff file loaded at startup when no database is configured
	File string `json:"file,omitempty"`

	// SnapshotDir holds the write-once snapshot store
	SnapshotDir string `json:"snapshot_dir"`

	// RefreshSchedule is a cron spec for polling the store
	RefreshSchedule string `json:"refresh_schedule"`

	// InternalMonths are the accepted internal durations
	InternalMonths []int `json:"internal_months"`

	// BorderMonths are the accepted border durations
	BorderMonths []int `json:"border_months"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Version: "1.0",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownSeconds: 10,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Redis: RedisConfig{
			Channel: "tariff:published",
		},
		Tariff: TariffConfig{
			SnapshotDir:     filepath.Join(homeDir, ".motor-tariff", "snapshots"),
			RefreshSchedule: "@every 1m",
			InternalMonths:  append([]int(nil), input.DefaultInternalMonths...),
			BorderMonths:    append([]int(nil), tariff.BorderMonths...),
		},
		Fees:    quote.DefaultFees(),
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file, then applies .env and environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, errors.Config("invalid config file "+path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TARIFF_* variables
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("TARIFF_HTTP_ADDR", &c.HTTP.Addr)
	str("TARIFF_DATABASE_DSN", &c.Database.DSN)
	str("TARIFF_REDIS_ADDR", &c.Redis.Addr)
	str("TARIFF_REDIS_PASSWORD", &c.Redis.Password)
	str("TARIFF_REDIS_CHANNEL", &c.Redis.Channel)
	str("TARIFF_FILE", &c.Tariff.File)
	str("TARIFF_SNAPSHOT_DIR", &c.Tariff.SnapshotDir)
	str("TARIFF_REFRESH_SCHEDULE", &c.Tariff.RefreshSchedule)
	str("TARIFF_LOG_LEVEL", &c.Logging.Level)
	str("TARIFF_LOG_FORMAT", &c.Logging.Format)

	ints := []struct {
		key string
		dst *int64
	}{
		{"TARIFF_FEE_ELECTRONIC_CARD", &c.Fees.ElectronicCard},
		{"TARIFF_FEE_PREMIUM_SERVICE", &c.Fees.PremiumService},
		{"TARIFF_FEE_RESCUE_SERVICE", &c.Fees.RescueService},
	}
	for _, i := range ints {
		if v := getenv(i.key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errors.Config(i.key+" must be an integer", err)
			}
			*i.dst = n
		}
	}

	if v := getenv("TARIFF_CORS_ORIGINS"); v != "" {
		c.HTTP.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.HTTP.CORSOrigins = append(c.HTTP.CORSOrigins, o)
			}
		}
	}

	if v := getenv("TARIFF_INTERNAL_MONTHS"); v != "" {
		months, err := parseMonths(v)
		if err != nil {
			return errors.Config("TARIFF_INTERNAL_MONTHS", err)
		}
		c.Tariff.InternalMonths = months
	}
	if v := getenv("TARIFF_BORDER_MONTHS"); v != "" {
		months, err := parseMonths(v)
		if err != nil {
			return errors.Config("TARIFF_BORDER_MONTHS", err)
		}
		c.Tariff.BorderMonths = months
	}
	return nil
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if err := c.Fees.Validate(); err != nil {
		return errors.Config("invalid fees", err)
	}
	for _, m := range c.Tariff.InternalMonths {
		if m <= 0 {
			return errors.Config(fmt.Sprintf("internal month %d must be positive", m), nil)
		}
	}
	for _, m := range c.Tariff.BorderMonths {
		if _, ok := tariff.DurationIndex(m); !ok {
			return errors.Config(fmt.Sprintf("border month %d is not tabulated", m), nil)
		}
	}
	if c.HTTP.Addr == "" {
		return errors.Config("http.addr is required", nil)
	}
	return nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func parseMonths(s string) ([]int, error) {
	var months []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid month %q", part)
		}
		months = append(months, n)
	}
	return months, nil
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
