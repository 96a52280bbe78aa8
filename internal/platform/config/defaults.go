package config

import "time"

// DefaultConfig returns the built-in configuration. Values here are meant to
// be overridden by config.yaml and environment variables.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:        "0.0.0.0",
			Port:      8080,
			StaticDir: "./web",
			Auth: AuthConfig{
				SessionTTL: 24 * time.Hour,
				Throttle: ThrottleConfig{
					MaxFailures:   5,
					Lockout:       15 * time.Minute,
					RecordTTL:     30 * time.Minute,
					SweepInterval: 20 * time.Minute,
				},
				Session: SessionStoreConfig{
					Driver:  "sqlite",
					Cleanup: 10 * time.Minute,
				},
			},
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Database: DatabaseConfig{
			DSN:             "data/vetrina.db",
			ConnectAttempts: 10,
			ConnectInterval: 2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			WindowSize:    time.Minute,
			PublicLimit:   120,
			AdminLimit:    60,
			Retention:     5 * time.Minute,
			SweepInterval: time.Minute,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Sync: SyncConfig{
			Debounce:      800 * time.Millisecond,
			CachePath:     "data/admin-mirror.json",
			SchemaVersion: "v3",
		},
	}
}
