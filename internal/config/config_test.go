package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GOALMAP_DB", "")
	t.Setenv("GOALMAP_PORT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Setenv("GOALMAP_DB", "")
	t.Setenv("GOALMAP_PORT", "")

	path := writeConfig(t, `
[server]
port = 8080
allowed_origins = ["https://goals.example.com"]

[priority]
default_priority = 2.5
refresh_minutes = 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Server.Port = 8080
	want.Server.AllowedOrigins = []string{"https://goals.example.com"}
	want.Priority.DefaultPriority = 2.5
	want.Priority.RefreshMinutes = 60
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.RefreshInterval(); got != time.Hour {
		t.Errorf("RefreshInterval = %v, want 1h", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GOALMAP_DB", "/tmp/goals.db")
	t.Setenv("GOALMAP_PORT", "9999")

	cfg, err := Load(writeConfig(t, "[server]\nport = 8080\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/goals.db" {
		t.Errorf("Database.Path = %q, want /tmp/goals.db", cfg.Database.Path)
	}
	if cfg.ListenAddr() != "127.0.0.1:9999" {
		t.Errorf("ListenAddr = %q, want 127.0.0.1:9999", cfg.ListenAddr())
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("GOALMAP_DB", "")

	tests := []struct {
		name string
		body string
		port string
	}{
		{"bad toml", "[server\nport = 1", ""},
		{"bad port env", "", "eighty"},
		{"port out of range", "[server]\nport = 70000\n", ""},
		{"negative priority", "[priority]\ndefault_priority = -1\n", ""},
		{"zero refresh", "[priority]\nrefresh_minutes = 0\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOALMAP_PORT", tt.port)
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDefaultPathEnv(t *testing.T) {
	t.Setenv("GOALMAP_CONFIG", "/etc/goalmap.toml")

	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if got != "/etc/goalmap.toml" {
		t.Errorf("DefaultPath = %q, want /etc/goalmap.toml", got)
	}
}
