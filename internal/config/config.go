package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides. Double underscores separate
// levels, so STEPBYTE_DEBUGGER__MAX_STEPS sets debugger.max_steps.
const EnvPrefix = "STEPBYTE_"

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Debugger   DebuggerConfig   `koanf:"debugger"`
	Complexity ComplexityConfig `koanf:"complexity"`
	Log        LogConfig        `koanf:"log"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	CORSOrigins  []string      `koanf:"cors_origins"`
}

// DebuggerConfig bounds a single traced run.
type DebuggerConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	MaxSteps       int           `koanf:"max_steps"`
	MaxDepth       int           `koanf:"max_depth"`
	MaxOutputBytes int           `koanf:"max_output_bytes"`
	// StagingDir holds the transient copy of each program; empty means the
	// system temp directory.
	StagingDir string `koanf:"staging_dir"`
	// DisplayName is the file name shown in diagnostics.
	DisplayName     string   `koanf:"display_name"`
	LibraryPatterns []string `koanf:"library_patterns"`
}

type ComplexityConfig struct {
	CacheSize int `koanf:"cache_size"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.addr":               "127.0.0.1:8080",
	"server.read_timeout":       "15s",
	"server.write_timeout":      "30s",
	"server.cors_origins":       []string{"*"},
	"debugger.timeout":          "5s",
	"debugger.max_steps":        100000,
	"debugger.max_depth":        1000,
	"debugger.max_output_bytes": 1 << 20,
	"debugger.staging_dir":      "",
	"debugger.display_name":     "main.py",
	"debugger.library_patterns": []string{"<frozen", "/lib/"},
	"complexity.cache_size":     256,
	"log.level":                 "info",
	"log.format":                "json",
	"telemetry.enabled":         false,
	"telemetry.service_name":    "stepbyte",
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"server.cors_origins":       true,
	"debugger.library_patterns": true,
}

// Load reads the configuration file at configPath, if any, then applies
// environment overrides and defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) && !errors.Is(err, os.ErrNotExist) {
				return nil, errors.Wrapf(err, "loading config file %s", configPath)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}

	for key, val := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, val); err != nil {
				return nil, errors.Wrapf(err, "setting default %s", key)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &cfg, nil
}

func envValue(key, value string) (string, interface{}) {
	key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
	if listKeys[key] {
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return key, parts
	}
	return key, value
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	d := cfg.Debugger
	if d.Timeout <= 0 {
		return errors.Newf("debugger.timeout must be positive, got %s", d.Timeout)
	}
	if d.MaxSteps <= 0 {
		return errors.Newf("debugger.max_steps must be positive, got %d", d.MaxSteps)
	}
	if d.MaxDepth <= 0 {
		return errors.Newf("debugger.max_depth must be positive, got %d", d.MaxDepth)
	}
	if d.MaxOutputBytes <= 0 {
		return errors.Newf("debugger.max_output_bytes must be positive, got %d", d.MaxOutputBytes)
	}
	if d.DisplayName == "" {
		return errors.New("debugger.display_name is required")
	}
	staging := d.StagingDir
	if staging == "" {
		staging = os.TempDir()
	}
	staging = strings.TrimSuffix(staging, "/") + "/"
	for _, p := range d.LibraryPatterns {
		if p != "" && strings.Contains(staging, p) {
			return errors.Newf("debugger.staging_dir %q matches library pattern %q; staged programs would not be traced", staging, p)
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("log.level: invalid level %q (must be debug, info, warn, or error)", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return errors.Newf("log.format: invalid format %q (must be json or text)", cfg.Log.Format)
	}

	if cfg.Complexity.CacheSize < 0 {
		return errors.Newf("complexity.cache_size must not be negative, got %d", cfg.Complexity.CacheSize)
	}
	return nil
}
