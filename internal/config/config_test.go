package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Preferences.Backend != BackendFile || cfg.Preferences.DefaultMode != "live" {
		t.Fatalf("unexpected preference defaults: %+v", cfg.Preferences)
	}
	if cfg.UI.RedrawInterval != 200*time.Millisecond {
		t.Fatalf("unexpected redraw interval: %v", cfg.UI.RedrawInterval)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	body := []byte(`
sources:
  remote:
    baseURL: http://metrics.internal:8000
    timeout: 2s
preferences:
  backend: memory
  defaultMode: demo
ui:
  notifyDuration: 6s
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POSTURE_FALLBACK_LOCATION", "/srv/demo")
	t.Setenv("POSTURE_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sources.Remote.BaseURL != "http://metrics.internal:8000" || cfg.Sources.Remote.Timeout != 2*time.Second {
		t.Fatalf("remote source not loaded: %+v", cfg.Sources.Remote)
	}
	if cfg.Sources.Fallback.Location != "/srv/demo" {
		t.Fatalf("env override not applied: %s", cfg.Sources.Fallback.Location)
	}
	if cfg.Preferences.DefaultMode != "demo" || cfg.UI.NotifyDuration != 6*time.Second {
		t.Fatalf("unexpected values: %+v %+v", cfg.Preferences, cfg.UI)
	}
	if !cfg.Logging.JSON {
		t.Fatalf("expected json logging")
	}
	if cfg.PersistsPreferences() {
		t.Fatalf("memory backend must not report persisted preferences")
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	t.Setenv("POSTURE_DEFAULT_MODE", "offline")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateCSRFKeyLength(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.CSRFKey = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for short csrf key")
	}
	cfg.Server.CSRFKey = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPersistsPreferences(t *testing.T) {
	for backend, want := range map[string]bool{
		BackendFile:   true,
		BackendValkey: true,
		BackendMemory: false,
	} {
		cfg := defaultConfig()
		cfg.Preferences.Backend = backend
		if got := cfg.PersistsPreferences(); got != want {
			t.Fatalf("backend %s: expected %v, got %v", backend, want, got)
		}
	}
}
