package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Sync      SyncConfig      `yaml:"sync"`
}

type ServerConfig struct {
	IP        string     `yaml:"ip"`
	Port      int        `yaml:"port"`
	StaticDir string     `yaml:"static_dir"`
	Auth      AuthConfig `yaml:"auth"`
}

type AuthConfig struct {
	// PasswordHash is the bcrypt hash of the single operator password.
	PasswordHash string `yaml:"password_hash"`
	// TOTPSecret is the shared secret for the second factor.
	TOTPSecret string        `yaml:"totp_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	Throttle   ThrottleConfig `yaml:"throttle"`
	Session    SessionStoreConfig `yaml:"session_store"`
	// StaticToken is a legacy authorize-only bridge. Leave empty to disable.
	StaticToken string `yaml:"static_token"`
	// StaticTokenExpires disables the bridge after the given instant.
	StaticTokenExpires time.Time `yaml:"static_token_expires"`
}

type ThrottleConfig struct {
	MaxFailures   int           `yaml:"max_failures"`
	Lockout       time.Duration `yaml:"lockout"`
	RecordTTL     time.Duration `yaml:"record_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type SessionStoreConfig struct {
	Driver  string        `yaml:"driver"` // memory | sqlite | redis
	Cleanup time.Duration `yaml:"cleanup"`
	Redis   RedisConfig   `yaml:"redis,omitempty"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
	// ConnectAttempts bounds the startup connectivity retry loop.
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectInterval time.Duration `yaml:"connect_interval"`
}

type RateLimitConfig struct {
	WindowSize    time.Duration `yaml:"window_size"`
	PublicLimit   int           `yaml:"public_limit"`
	AdminLimit    int           `yaml:"admin_limit"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type SyncConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	CachePath string        `yaml:"cache_path"`
	// SchemaVersion invalidates the local durable cache wholesale when bumped.
	SchemaVersion string `yaml:"schema_version"`
}
