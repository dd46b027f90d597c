// Package config manages supplicantd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete supplicantd configuration.
type Config struct {
	Bus     BusConfig     `koanf:"bus"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Debug   DebugConfig   `koanf:"debug"`
}

// BusConfig holds the system bus connection configuration.
type BusConfig struct {
	// ServiceName is the peer's well-known bus name
	// (default "fi.w1.wpa_supplicant1").
	ServiceName string `koanf:"service_name"`
	// DialTimeout is loaded and validated (must be > 0). It is not applied
	// to the bus dial: supplicantd calls SystemBus() without a timeout.
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// DebugConfig holds the peer debug parameters. supplicantd pushes only
// Level, via Replica.SetDebugLevel on every SystemReady; the root
// "DebugParams" tuple it writes carries the peer's last-known timestamp
// and showkeys flags, not Timestamp and ShowKeys from this section.
type DebugConfig struct {
	// Level is the debug verbosity level pushed to the peer.
	Level int32 `koanf:"level"`
	// Timestamp is loaded from configuration but not sent to the peer.
	Timestamp bool `koanf:"timestamp"`
	// ShowKeys is loaded from configuration but not sent to the peer.
	// Off by default.
	ShowKeys bool `koanf:"show_keys"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bus: BusConfig{
			ServiceName: "fi.w1.wpa_supplicant1",
			DialTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Debug: DebugConfig{
			Level:     0,
			Timestamp: false,
			ShowKeys:  false,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for supplicantd configuration.
// Variables are named SUPPLICANTD_<section>_<key>, e.g., SUPPLICANTD_BUS_SERVICE_NAME.
const envPrefix = "SUPPLICANTD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (SUPPLICANTD_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	SUPPLICANTD_BUS_SERVICE_NAME -> bus.service_name
//	SUPPLICANTD_BUS_DIAL_TIMEOUT -> bus.dial_timeout
//	SUPPLICANTD_METRICS_ADDR     -> metrics.addr
//	SUPPLICANTD_METRICS_PATH     -> metrics.path
//	SUPPLICANTD_LOG_LEVEL        -> log.level
//	SUPPLICANTD_LOG_FORMAT       -> log.format
//	SUPPLICANTD_DEBUG_LEVEL      -> debug.level
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms SUPPLICANTD_BUS_SERVICE_NAME -> bus.service_name.
// Strips the SUPPLICANTD_ prefix, lowercases, and replaces the first _ with
// the section separator. Only the first: section names are single words, and
// key names (service_name, dial_timeout, show_keys) keep their underscores.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"bus.service_name": defaults.Bus.ServiceName,
		"bus.dial_timeout": defaults.Bus.DialTimeout.String(),
		"metrics.addr":     defaults.Metrics.Addr,
		"metrics.path":     defaults.Metrics.Path,
		"log.level":        defaults.Log.Level,
		"log.format":       defaults.Log.Format,
		"debug.level":      defaults.Debug.Level,
		"debug.timestamp":  defaults.Debug.Timestamp,
		"debug.show_keys":  defaults.Debug.ShowKeys,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyServiceName indicates the peer bus name is empty.
	ErrEmptyServiceName = errors.New("bus.service_name must not be empty")

	// ErrInvalidDialTimeout indicates the dial timeout is not positive.
	ErrInvalidDialTimeout = errors.New("bus.dial_timeout must be > 0")

	// ErrEmptyMetricsAddr indicates the metrics listen address is empty.
	ErrEmptyMetricsAddr = errors.New("metrics.addr must not be empty")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Bus.ServiceName == "" {
		return ErrEmptyServiceName
	}

	if cfg.Bus.DialTimeout <= 0 {
		return ErrInvalidDialTimeout
	}

	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
