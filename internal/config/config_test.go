package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"WS_ADDR", "API_ADDR", "REDIS_URL", "DATABASE_URL", "RECONCILE_INTERVAL_SEC", "ALLOW_COMPUTER_MATCH", "LEADERBOARD_LIMIT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSAddr != ":8080" || cfg.APIAddr != ":8081" {
		t.Fatalf("addrs: %+v", cfg)
	}
	if cfg.ReconcileInterval != 30*time.Second || !cfg.AllowComputerMatch || cfg.LeaderboardLimit != 30 {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WS_ADDR", ":9000")
	t.Setenv("API_ADDR", ":9001")
	t.Setenv("RECONCILE_INTERVAL_SEC", "5")
	t.Setenv("WS_PING_SEC", "bogus")
	t.Setenv("ALLOW_COMPUTER_MATCH", "false")
	t.Setenv("LEADERBOARD_LIMIT", "99")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSAddr != ":9000" || cfg.ReconcileInterval != 5*time.Second || cfg.AllowComputerMatch {
		t.Fatalf("overrides: %+v", cfg)
	}
	if cfg.WSPingInterval != 30*time.Second || cfg.LeaderboardLimit != 30 {
		t.Fatalf("invalid values must keep defaults: %+v", cfg)
	}
}

func TestLoadRejectsSharedAddr(t *testing.T) {
	t.Setenv("WS_ADDR", ":7000")
	t.Setenv("API_ADDR", ":7000")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for shared listen address")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RPS_DOTENV_PROBE=hello\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("RPS_DOTENV_PROBE", "")
	os.Unsetenv("RPS_DOTENV_PROBE")
	LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	if got := os.Getenv("RPS_DOTENV_PROBE"); got != "hello" {
		t.Fatalf("dotenv not applied: %q", got)
	}
}
