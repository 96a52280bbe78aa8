package store

import (
	"context"
	"errors"
	"time"

	"vetrina-server-go/internal/domain/session/model"
)

// ErrNotFound is returned when no row matches the requested token.
var ErrNotFound = errors.New("session not found")

// Store defines the behaviour required by the session manager.
type Store interface {
	Save(ctx context.Context, session model.Session) error
	Get(ctx context.Context, token string) (model.Session, error)
	Delete(ctx context.Context, token string) error
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
