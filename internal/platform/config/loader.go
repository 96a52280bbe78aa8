package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader reads configuration from defaults, an optional YAML file and the
// process environment, in that order of precedence (environment wins).
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader reading the default config.yaml location.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      "config.yaml",
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load produces the effective configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	origin := "defaults"

	if raw, err := os.ReadFile(l.path); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.path, err)
		}
		origin = l.path
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	applyEnv(cfg)

	return &Result{
		Config: cfg,
		Path:   origin,
	}, nil
}

// applyEnv copies recognised environment variables over the loaded config.
// Secrets are deliberately env-first so they never have to live in the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VETRINA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VETRINA_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("VETRINA_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Server.Auth.PasswordHash = v
	}
	if v := os.Getenv("VETRINA_TOTP_SECRET"); v != "" {
		cfg.Server.Auth.TOTPSecret = v
	}
	if v := os.Getenv("VETRINA_STATIC_TOKEN"); v != "" {
		cfg.Server.Auth.StaticToken = v
	}
	if v := os.Getenv("VETRINA_STATIC_TOKEN_EXPIRES"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			cfg.Server.Auth.StaticTokenExpires = ts
		}
	}
	if v := os.Getenv("VETRINA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("VETRINA_REDIS_ADDR"); v != "" {
		cfg.Server.Auth.Session.Redis.Addr = v
	}
}
