// Package config loads and validates the process configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ExactTargetDev/flume/errors"
)

// MaxConfigSize bounds the configuration file; anything larger is
// rejected before parsing.
const MaxConfigSize = 1 << 20

// Config is the full process configuration.
type Config struct {
	// NATSUrl enables the object store writer backend when set.
	NATSUrl string `json:"nats_url,omitempty"`

	// Subject, when set together with NATSUrl, subscribes to a NATS
	// subject as an additional event source next to stdin.
	Subject string `json:"subject,omitempty"`

	// DefaultFormat is the process-wide default format spec string.
	// Empty means raw.
	DefaultFormat string `json:"default_format,omitempty"`

	// MaxOpenWriters bounds each dynamic sink's writer cache. Zero
	// means the built-in default.
	MaxOpenWriters int `json:"max_open_writers,omitempty"`

	Log     LogConfig     `json:"log,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Sinks are built in order; each entry names a registered sink
	// type and its positional arguments.
	Sinks []SinkConfig `json:"sinks"`
}

// SinkConfig configures one sink instance. Format is an alternative to
// passing the format spec as the third positional argument.
type SinkConfig struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Args   []string `json:"args"`
	Format string   `json:"format,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // json or text
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// Default returns a configuration with usable defaults and no sinks.
func Default() Config {
	return Config{
		NATSUrl:        "",
		DefaultFormat:  "raw",
		MaxOpenWriters: 0,
		Log:            LogConfig{Level: "info", Format: "json"},
		Metrics:        MetricsConfig{Enabled: false, Port: 9090, Path: "/metrics"},
	}
}

// Load reads, parses, and validates a configuration file. Values absent
// from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		return cfg, errors.WrapInvalid(err, "Config", "Load", "stat "+path)
	}
	if info.Size() > MaxConfigSize {
		return cfg, errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", info.Size(), MaxConfigSize),
			"Config", "Load", "size check")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WrapInvalid(err, "Config", "Load", "read "+path)
	}

	if err := SafeUnmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "Config", "Load", "parse "+path)
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.MaxOpenWriters < 0 {
		return fmt.Errorf("max_open_writers must not be negative")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port %d", c.Metrics.Port)
	}
	if c.Subject != "" && c.NATSUrl == "" {
		return fmt.Errorf("subject requires nats_url")
	}

	seen := make(map[string]bool, len(c.Sinks))
	for i, s := range c.Sinks {
		if s.Name == "" {
			return fmt.Errorf("sink %d has no name", i)
		}
		if s.Type == "" {
			return fmt.Errorf("sink %q has no type", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate sink name %q", s.Name)
		}
		seen[s.Name] = true
	}

	return nil
}

// Validatable is implemented by configs that carry cross-field
// constraints beyond what JSON decoding checks.
type Validatable interface {
	Validate() error
}

// SafeUnmarshal unmarshals JSON into target after bounding its size,
// then runs the target's own validation when it implements Validatable.
func SafeUnmarshal(raw json.RawMessage, target any) error {
	if len(raw) > MaxConfigSize {
		return errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", len(raw), MaxConfigSize),
			"Config", "SafeUnmarshal", "size check")
	}

	// Empty config is valid, the target keeps its defaults.
	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return errors.WrapInvalid(err, "Config", "SafeUnmarshal", "JSON unmarshaling")
	}

	if validatable, ok := target.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			return errors.WrapInvalid(err, "Config", "SafeUnmarshal", "struct validation")
		}
	}

	return nil
}
