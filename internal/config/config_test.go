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
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8081" {
		t.Errorf("expected :8081, got %s", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "fs" {
		t.Errorf("expected fs driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Cache.Kind != "memory" {
		t.Errorf("expected memory cache, got %s", cfg.Cache.Kind)
	}
	if Duration(cfg.Poll.Interval) != 2*time.Second {
		t.Errorf("expected 2s poll interval, got %s", cfg.Poll.Interval)
	}
	if cfg.IsProd() {
		t.Error("default env must not be prod")
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  env: staging
server:
  addr: ":9000"
poll:
  interval: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("POLL_MAX_WAIT", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Env != "staging" {
		t.Errorf("expected staging, got %s", cfg.App.Env)
	}
	// El env pisa al YAML.
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.Server.Addr)
	}
	if cfg.Poll.Interval != "5s" {
		t.Errorf("expected 5s, got %s", cfg.Poll.Interval)
	}
	if Duration(cfg.Poll.MaxWait) != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.Poll.MaxWait)
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}

	t.Setenv("STORAGE_DSN", "postgres://localhost/comfygate")
	if _, err := Load(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "cinco segundos")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
