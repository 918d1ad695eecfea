package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/diagchan/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" || cfg.Realm.Backend != BackendMemory {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.Scenario.Channels) == 0 {
		t.Fatal("default scenario is empty")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "diagchan.yaml", `
log:
  level: debug
  format: json
realm:
  backend: wasm
scenario:
  channels:
    - name: net
      every: "*/5 * * * * *"
      payload: ping
      subscribers: 2
      tracing: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Realm.Backend != BackendWasm {
		t.Fatalf("backend = %q", cfg.Realm.Backend)
	}
	if len(cfg.Scenario.Channels) != 1 {
		t.Fatalf("channels = %+v", cfg.Scenario.Channels)
	}
	ch := cfg.Scenario.Channels[0]
	if ch.Name != "net" || ch.Subscribers != 2 || !ch.Tracing || ch.Payload != "ping" {
		t.Fatalf("channel = %+v", ch)
	}
	if cfg.Metrics.Namespace != "diagchan" {
		t.Fatal("unset section lost its default")
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "diagchan.toml", `
[log]
level = "warn"

[metrics]
addr = ":9100"

[[scenario.channels]]
name = "fs"
every = "@every 2s"
subscribers = 1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "console" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("metrics = %+v", cfg.Metrics)
	}
	if len(cfg.Scenario.Channels) != 1 || cfg.Scenario.Channels[0].Name != "fs" {
		t.Fatalf("channels = %+v", cfg.Scenario.Channels)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		kind errors.Kind
	}{
		{"missing yaml", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") }, errors.KindNotFound},
		{"missing toml", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.toml") }, errors.KindNotFound},
		{"bad yaml", func(t *testing.T) string { return writeFile(t, "bad.yaml", "log: [") }, errors.KindInvalidData},
		{"bad toml", func(t *testing.T) string { return writeFile(t, "bad.toml", "log = = 1") }, errors.KindInvalidData},
		{"unknown extension", func(t *testing.T) string { return writeFile(t, "cfg.json", "{}") }, errors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			e, ok := err.(*errors.Error)
			if !ok || e.Kind != tt.kind || e.Phase != errors.PhaseConfig {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9200")
	t.Setenv(EnvBackend, "wasm")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "error" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9200" || cfg.Realm.Backend != BackendWasm {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"bad backend", func(c *Config) { c.Realm.Backend = "disk" }, false},
		{"unnamed channel", func(c *Config) { c.Scenario.Channels[0].Name = "" }, false},
		{"duplicate channel", func(c *Config) { c.Scenario.Channels[1].Name = c.Scenario.Channels[0].Name }, false},
		{"negative subscribers", func(c *Config) { c.Scenario.Channels[0].Subscribers = -1 }, false},
		{"bad schedule", func(c *Config) { c.Scenario.Channels[0].Every = "sometimes" }, false},
		{"no channels", func(c *Config) { c.Scenario.Channels = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
