package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsAllSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
log:
  level: debug
  format: json
redis:
  addr: localhost:6379
postgres:
  url: postgres://ledger@localhost/ledger
course:
  cacheTTL: 30s
ledger:
  totalCourseXP: 800
  maxCommitRetries: 7
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected server/log config: %+v", cfg)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Postgres.URL == "" {
		t.Fatalf("unexpected storage config: %+v", cfg)
	}
	if cfg.Ledger.TotalCourseXP != 800 || cfg.Ledger.MaxCommitRetries != 7 {
		t.Fatalf("unexpected ledger config: %+v", cfg.Ledger)
	}
	if got := TTLDuration(cfg.Course.CacheTTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s cache ttl, got %v", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "redis:\n  addr: localhost:6379\n  ttl: 10m\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown redis.ttl")
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Course.CacheTTL != "5m" {
		t.Fatalf("unexpected shipped config: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
