package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("DISCORD_BOT_TOKEN", "bot-token")
	t.Setenv("SUPER_ADMIN_USER_ID", "u-super")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("env override lost: %d", cfg.Server.Port)
	}
	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address())
	}
	if cfg.Session.Secret != "test-secret" || cfg.Session.TTL != 24*time.Hour {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Directory.BotToken != "bot-token" {
		t.Fatalf("bot token lost: %+v", cfg.Directory)
	}
	if cfg.Access.SuperAdminUserID != "u-super" {
		t.Fatalf("super admin lost: %+v", cfg.Access)
	}
	if cfg.IsProduction() {
		t.Fatal("default environment should not be production")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("server:\n  port: 7070\napp:\n  environment: production\nrate_limit:\n  rps: 50\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7070 || !cfg.IsProduction() || cfg.RateLimit.RPS != 50 {
		t.Fatalf("file values lost: %+v", cfg)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	if _, err := Load(""); err == nil {
		t.Fatal("missing session secret should fail validation")
	}
}

func TestLoadRejectsRefreshBeyondTTL(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SESSION_REFRESH_AFTER", "2h")
	if _, err := Load(""); err == nil {
		t.Fatal("refresh-after beyond ttl should fail validation")
	}
}
