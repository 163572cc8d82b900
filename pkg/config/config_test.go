package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
	if cfg.AptRoot != DefaultAptRoot {
		t.Errorf("expected apt root %s, got %s", DefaultAptRoot, cfg.AptRoot)
	}
	if !cfg.History.Enabled || cfg.History.Path != DefaultHistoryPath {
		t.Errorf("unexpected history defaults: %+v", cfg.History)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvLogLevel, "")

	path := writeConfig(t, `
catalog_dir: channels
apt_root: /tmp/apt
policy_dir: policies
history:
  enabled: true
  path: state/history.db
  retention: 72h
telemetry:
  logging:
    level: debug
    format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dir := filepath.Dir(path)
	if cfg.CatalogDir != filepath.Join(dir, "channels") {
		t.Errorf("expected catalog dir relative to config, got %s", cfg.CatalogDir)
	}
	if cfg.AptRoot != "/tmp/apt" {
		t.Errorf("expected absolute apt root kept, got %s", cfg.AptRoot)
	}
	if cfg.History.Path != filepath.Join(dir, "state", "history.db") {
		t.Errorf("unexpected history path %s", cfg.History.Path)
	}
	if cfg.History.Retention != 72*time.Hour {
		t.Errorf("expected 72h retention, got %s", cfg.History.Retention)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Telemetry.Logging)
	}
	// Untouched sections keep their defaults.
	if cfg.Telemetry.ServiceName != "froyo-channels" {
		t.Errorf("expected default service name, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "telemetry:\n  logging:\n    level: info\n")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected LOG_LEVEL override, got %s", cfg.Telemetry.Logging.Level)
	}
}

func TestLoad_EnvPath(t *testing.T) {
	path := writeConfig(t, "apt_root: /srv/apt\n")
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AptRoot != "/srv/apt" {
		t.Errorf("expected config from %s, got apt root %s", EnvConfigPath, cfg.AptRoot)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, "catalog_directory: /tmp\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "missing catalog",
			mutate:    func(c *Config) { c.CatalogDir = "" },
			wantField: "catalog_dir",
		},
		{
			name:      "history without path",
			mutate:    func(c *Config) { c.History.Path = "" },
			wantField: "history.path",
		},
		{
			name:      "negative retention",
			mutate:    func(c *Config) { c.History.Retention = -time.Hour },
			wantField: "history.retention",
		},
		{
			name:      "bad log format",
			mutate:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, verrs[0].Field)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error message %q does not name the field", err.Error())
			}
		})
	}

	t.Run("history disabled needs no path", func(t *testing.T) {
		cfg := Default()
		cfg.History = HistoryConfig{Enabled: false}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("telemetry rules", func(t *testing.T) {
		cfg := Default()
		cfg.Telemetry.Logging.Level = "chatty"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown log level")
		}
	})
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.CatalogDir != DefaultCatalogDir {
		t.Errorf("expected defaults for empty document, got %s", cfg.CatalogDir)
	}
}
