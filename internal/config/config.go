// Package config loads diagchan's runtime configuration from YAML or TOML
// files, overlays environment variables and validates the result.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	robfigcron "github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/diagchan"
	"github.com/wippyai/diagchan/errors"
)

// Environment variables that override file settings.
const (
	EnvLogLevel    = "DIAGCHAN_LOG_LEVEL"
	EnvLogFormat   = "DIAGCHAN_LOG_FORMAT"
	EnvMetricsAddr = "DIAGCHAN_METRICS_ADDR"
	EnvBackend     = "DIAGCHAN_BACKEND"
)

// Backends for the subscriber table.
const (
	BackendMemory = "memory"
	BackendWasm   = "wasm"
)

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `yaml:"log" toml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Realm    RealmConfig    `yaml:"realm" toml:"realm"`
	Scenario ScenarioConfig `yaml:"scenario" toml:"scenario"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // json | console
}

// MetricsConfig controls the prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr      string `yaml:"addr" toml:"addr"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// RealmConfig selects where the subscriber table lives.
type RealmConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
}

// ScenarioConfig describes the synthetic traffic run by `diagchan run`.
type ScenarioConfig struct {
	Channels []ChannelConfig `yaml:"channels" toml:"channels"`
}

// ChannelConfig is one emitter: a channel published on a cron schedule.
type ChannelConfig struct {
	Name        string `yaml:"name" toml:"name"`
	Every       string `yaml:"every" toml:"every"` // cron spec with seconds, or @every <duration>
	Payload     string `yaml:"payload" toml:"payload"`
	Subscribers int    `yaml:"subscribers" toml:"subscribers"`
	Tracing     bool   `yaml:"tracing" toml:"tracing"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "diagchan",
		},
		Realm: RealmConfig{
			Backend: BackendMemory,
		},
		Scenario: ScenarioConfig{
			Channels: []ChannelConfig{
				{Name: "http.request", Every: "@every 1s", Payload: "GET /", Subscribers: 1},
				{Name: "fs.read", Every: "@every 3s", Payload: "/etc/hosts"},
			},
		},
	}
}

// Load reads path, applies environment overrides and validates. An empty
// path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse "+path)
		}
	case ".toml":
		if _, err := os.Stat(path); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse "+path)
		}
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("unsupported config format %q", ext).
			Value(path).
			Build()
	}
	return nil
}

// ApplyEnv overlays variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Log.Format = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.Metrics.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvBackend); ok {
		c.Realm.Backend = strings.TrimSpace(v)
	}
}

var scheduleParser = robfigcron.NewParser(
	robfigcron.Second | robfigcron.Minute | robfigcron.Hour |
		robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor,
)

// ParseSchedule parses an emitter schedule.
func ParseSchedule(spec string) (robfigcron.Schedule, error) {
	return scheduleParser.Parse(spec)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format", "unknown format %q", c.Log.Format)
	}
	switch c.Realm.Backend {
	case BackendMemory, BackendWasm:
	default:
		return invalid("realm.backend", "unknown backend %q", c.Realm.Backend)
	}

	if len(c.Scenario.Channels) > diagchan.MaxChannels {
		return invalid("scenario.channels", "%d channels exceed the limit of %d", len(c.Scenario.Channels), diagchan.MaxChannels)
	}
	seen := make(map[string]struct{}, len(c.Scenario.Channels))
	for i, ch := range c.Scenario.Channels {
		if ch.Name == "" {
			return invalid("scenario.channels", "channel %d has no name", i)
		}
		if _, dup := seen[ch.Name]; dup {
			return invalid("scenario.channels", "duplicate channel %q", ch.Name)
		}
		seen[ch.Name] = struct{}{}
		if ch.Subscribers < 0 {
			return invalid("scenario.channels", "channel %q has negative subscribers", ch.Name)
		}
		if _, err := ParseSchedule(ch.Every); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Channel(ch.Name).
				Detail("invalid schedule %q", ch.Every).
				Cause(err).
				Build()
		}
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(field).
		Detail(field+": "+format, args...).
		Build()
}
