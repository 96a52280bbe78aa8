package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "debug"
rate_limit:
  public_limit: 200
  admin_limit: 40
`

	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader().WithDotEnv(false).WithPath(configFile)
	res, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.Server.Port)
	}
	if cfg.RateLimit.PublicLimit != 200 || cfg.RateLimit.AdminLimit != 40 {
		t.Errorf("unexpected rate limits: %+v", cfg.RateLimit)
	}
	// File did not touch these; defaults must survive the merge.
	if cfg.Server.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("expected default session TTL, got %v", cfg.Server.Auth.SessionTTL)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected default cache TTL, got %v", cfg.Cache.TTL)
	}
}

func TestLoader_LoadMissingFileFallsBackToDefaults(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))
	res, err := loader.Load()
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if res.Path != "defaults" {
		t.Errorf("expected origin defaults, got %s", res.Path)
	}
	if res.Config.RateLimit.PublicLimit != 120 {
		t.Errorf("unexpected default public limit: %d", res.Config.RateLimit.PublicLimit)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("VETRINA_ADMIN_PASSWORD_HASH", "$2a$10$testhash")
	t.Setenv("VETRINA_TOTP_SECRET", "JBSWY3DPEHPK3PXP")
	t.Setenv("VETRINA_PORT", "7070")
	t.Setenv("VETRINA_STATIC_TOKEN_EXPIRES", "2027-01-01T00:00:00Z")

	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))
	res, err := loader.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config

	if cfg.Server.Auth.PasswordHash != "$2a$10$testhash" {
		t.Errorf("password hash not taken from env")
	}
	if cfg.Server.Auth.TOTPSecret != "JBSWY3DPEHPK3PXP" {
		t.Errorf("totp secret not taken from env")
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port not taken from env: %d", cfg.Server.Port)
	}
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !cfg.Server.Auth.StaticTokenExpires.Equal(want) {
		t.Errorf("static token expiry not parsed: %v", cfg.Server.Auth.StaticTokenExpires)
	}
}
