// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/beaconkit/lib/compress"
	"github.com/bureau-foundation/beaconkit/lib/eviction"
	"github.com/bureau-foundation/beaconkit/lib/sender"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// EnvironmentPrefix prefixes every variable read by FromEnvironment.
const EnvironmentPrefix = "BEACONKIT_"

// Config is the master configuration for beaconkit.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment" env:"ENVIRONMENT"`

	// Collector configures where and how beacons are delivered.
	Collector CollectorConfig `yaml:"collector" envPrefix:"COLLECTOR_"`

	// Application identifies the instrumented application.
	Application ApplicationConfig `yaml:"application" envPrefix:"APPLICATION_"`

	// Device describes the host the application runs on.
	Device DeviceConfig `yaml:"device" envPrefix:"DEVICE_"`

	// Cache bounds the in-memory beacon cache.
	Cache CacheConfig `yaml:"cache" envPrefix:"CACHE_"`

	// Sender tunes the delivery state machine.
	Sender SenderConfig `yaml:"sender" envPrefix:"SENDER_"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Collector *CollectorConfig `yaml:"collector,omitempty"`
	Cache     *CacheConfig     `yaml:"cache,omitempty"`
	LogLevel  string           `yaml:"log_level,omitempty"`
}

// CollectorConfig configures the collector connection.
type CollectorConfig struct {
	// Endpoint is the beacon URL, for example
	// https://collector.example.com/mbeacon.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// Compression is the beacon body encoding: none, gzip, zstd, lz4.
	// Default: none
	Compression string `yaml:"compression" env:"COMPRESSION"`

	// ResponseFormat asks the collector for json or cbor responses.
	// Default: json
	ResponseFormat string `yaml:"response_format" env:"RESPONSE_FORMAT"`
}

// ApplicationConfig identifies the instrumented application.
type ApplicationConfig struct {
	// ID is the collector-assigned application id. Required.
	ID      string `yaml:"id" env:"ID"`
	Name    string `yaml:"name" env:"NAME"`
	Version string `yaml:"version" env:"VERSION"`
}

// DeviceConfig describes the device. A non-numeric ID is hashed into
// the numeric device id the protocol requires. Empty descriptive
// fields are probed from the host when the SDK starts.
type DeviceConfig struct {
	ID              string `yaml:"id" env:"ID"`
	OperatingSystem string `yaml:"operating_system" env:"OPERATING_SYSTEM"`
	Manufacturer    string `yaml:"manufacturer" env:"MANUFACTURER"`
	ModelID         string `yaml:"model_id" env:"MODEL_ID"`
}

// CacheConfig bounds the beacon cache.
type CacheConfig struct {
	// MaxRecordAge is the age after which records are evicted. Zero
	// disables time-based eviction.
	// Default: 1h45m
	MaxRecordAge time.Duration `yaml:"max_record_age" env:"MAX_RECORD_AGE"`

	// LowerBound and UpperBound are byte counts. Space eviction starts
	// above UpperBound and stops at LowerBound.
	// Default: 80 MiB and 100 MiB
	LowerBound int64 `yaml:"lower_bound" env:"LOWER_BOUND"`
	UpperBound int64 `yaml:"upper_bound" env:"UPPER_BOUND"`
}

// SenderConfig tunes the delivery state machine. See lib/sender.Config
// for the meaning of each field.
type SenderConfig struct {
	StatusCheckInterval   time.Duration   `yaml:"status_check_interval" env:"STATUS_CHECK_INTERVAL"`
	InitRetryDelays       []time.Duration `yaml:"init_retry_delays" env:"INIT_RETRY_DELAYS"`
	MaxInitAttempts       int             `yaml:"max_init_attempts" env:"MAX_INIT_ATTEMPTS"`
	StatusRequestRetries  int             `yaml:"status_request_retries" env:"STATUS_REQUEST_RETRIES"`
	InitialRetryDelay     time.Duration   `yaml:"initial_retry_delay" env:"INITIAL_RETRY_DELAY"`
	MaxRetryDelay         time.Duration   `yaml:"max_retry_delay" env:"MAX_RETRY_DELAY"`
	CaptureOnInterval     time.Duration   `yaml:"capture_on_interval" env:"CAPTURE_ON_INTERVAL"`
	MaxNewSessionRequests int             `yaml:"max_new_session_requests" env:"MAX_NEW_SESSION_REQUESTS"`
	ShutdownTimeout       time.Duration   `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Default returns the default configuration. Application.ID has no
// default; a loaded configuration must provide it.
func Default() *Config {
	senderDefaults := sender.DefaultConfig()
	return &Config{
		Environment: Development,
		Collector: CollectorConfig{
			Endpoint:       "http://localhost:8080/mbeacon",
			Compression:    compress.None.String(),
			ResponseFormat: "json",
		},
		Cache: CacheConfig{
			MaxRecordAge: 105 * time.Minute,
			LowerBound:   80 * 1024 * 1024,
			UpperBound:   100 * 1024 * 1024,
		},
		Sender: SenderConfig{
			StatusCheckInterval:   senderDefaults.StatusCheckInterval,
			InitRetryDelays:       senderDefaults.InitRetryDelays,
			MaxInitAttempts:       senderDefaults.MaxInitAttempts,
			StatusRequestRetries:  senderDefaults.StatusRequestRetries,
			InitialRetryDelay:     senderDefaults.InitialRetryDelay,
			MaxRetryDelay:         senderDefaults.MaxRetryDelay,
			CaptureOnInterval:     senderDefaults.CaptureOnInterval,
			MaxNewSessionRequests: senderDefaults.MaxNewSessionRequests,
			ShutdownTimeout:       senderDefaults.ShutdownTimeout,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from the file named by BEACONKIT_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv("BEACONKIT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BEACONKIT_CONFIG environment variable not set; " +
			"set it to the path of your beaconkit.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Environment
// variables do not override file values; the only expansion performed
// is ${VAR} in the collector endpoint and application id.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// FromEnvironment builds a configuration from BEACONKIT_* variables
// over the defaults, for example BEACONKIT_COLLECTOR_ENDPOINT or
// BEACONKIT_CACHE_MAX_RECORD_AGE=30m. Environment sections do not
// apply.
func FromEnvironment() (*Config, error) {
	cfg := Default()
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvironmentPrefix}); err != nil {
		return nil, fmt.Errorf("parsing %s* environment: %w", EnvironmentPrefix, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Collector: &CollectorConfig{Compression: compress.Gzip.String()},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Collector != nil {
		if overrides.Collector.Endpoint != "" {
			c.Collector.Endpoint = overrides.Collector.Endpoint
		}
		if overrides.Collector.Compression != "" {
			c.Collector.Compression = overrides.Collector.Compression
		}
		if overrides.Collector.ResponseFormat != "" {
			c.Collector.ResponseFormat = overrides.Collector.ResponseFormat
		}
	}

	if overrides.Cache != nil {
		if overrides.Cache.MaxRecordAge != 0 {
			c.Cache.MaxRecordAge = overrides.Cache.MaxRecordAge
		}
		if overrides.Cache.LowerBound != 0 {
			c.Cache.LowerBound = overrides.Cache.LowerBound
		}
		if overrides.Cache.UpperBound != 0 {
			c.Cache.UpperBound = overrides.Cache.UpperBound
		}
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	c.Collector.Endpoint = expandVars(c.Collector.Endpoint)
	c.Application.ID = expandVars(c.Application.ID)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Collector.Endpoint == "" {
		errs = append(errs, fmt.Errorf("collector.endpoint is required"))
	} else if endpoint, err := url.Parse(c.Collector.Endpoint); err != nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") {
		errs = append(errs, fmt.Errorf("collector.endpoint must be an http or https URL: %q", c.Collector.Endpoint))
	}
	if _, err := compress.Parse(c.Collector.Compression); err != nil {
		errs = append(errs, fmt.Errorf("collector.compression: %w", err))
	}
	if c.Collector.ResponseFormat != "json" && c.Collector.ResponseFormat != "cbor" {
		errs = append(errs, fmt.Errorf("collector.response_format must be json or cbor, got %q", c.Collector.ResponseFormat))
	}

	if c.Application.ID == "" {
		errs = append(errs, fmt.Errorf("application.id is required"))
	}

	if c.Cache.MaxRecordAge < 0 {
		errs = append(errs, fmt.Errorf("cache.max_record_age must not be negative"))
	}
	if c.Cache.LowerBound < 0 || c.Cache.UpperBound < 0 {
		errs = append(errs, fmt.Errorf("cache bounds must not be negative"))
	}
	if c.Cache.UpperBound > 0 && c.Cache.UpperBound < c.Cache.LowerBound {
		errs = append(errs, fmt.Errorf("cache.upper_bound (%d) is below cache.lower_bound (%d)", c.Cache.UpperBound, c.Cache.LowerBound))
	}

	if err := c.SenderConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sender: %w", err))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EvictionConfig returns the cache section as an eviction configuration.
func (c *Config) EvictionConfig() eviction.Config {
	return eviction.Config{
		MaxRecordAge: c.Cache.MaxRecordAge,
		LowerBound:   c.Cache.LowerBound,
		UpperBound:   c.Cache.UpperBound,
	}
}

// SenderConfig returns the sender section as a state machine
// configuration.
func (c *Config) SenderConfig() sender.Config {
	return sender.Config{
		InitRetryDelays:       c.Sender.InitRetryDelays,
		MaxInitAttempts:       c.Sender.MaxInitAttempts,
		StatusRequestRetries:  c.Sender.StatusRequestRetries,
		InitialRetryDelay:     c.Sender.InitialRetryDelay,
		MaxRetryDelay:         c.Sender.MaxRetryDelay,
		StatusCheckInterval:   c.Sender.StatusCheckInterval,
		CaptureOnInterval:     c.Sender.CaptureOnInterval,
		MaxNewSessionRequests: c.Sender.MaxNewSessionRequests,
		ShutdownTimeout:       c.Sender.ShutdownTimeout,
	}
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
