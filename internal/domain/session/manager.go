package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"vetrina-server-go/internal/domain/session/model"
	"vetrina-server-go/internal/domain/session/store"
)

type (
	// Session re-exports the shared entity for callers.
	Session = model.Session
	// Logger re-exports the logging interface used across the domain.
	Logger = model.Logger
)

const (
	defaultCleanupInterval = 10 * time.Minute
	minCleanupInterval     = 30 * time.Second
	defaultTTL             = 24 * time.Hour
)

// Options encapsulates the dependencies required to construct a Manager.
type Options struct {
	Store           store.Store
	Logger          Logger
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Manager issues, validates and revokes opaque session tokens, and runs the
// background expiry sweep.
type Manager struct {
	store  store.Store
	logger Logger
	ttl    time.Duration

	now func() time.Time

	cleanupInterval time.Duration
	cleanupStop     chan struct{}
	cleanupOnce     sync.Once
}

// NewManager wires a Manager using the supplied options.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("session manager requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("session manager requires a logger")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	cleanupInterval := opts.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	} else if cleanupInterval < minCleanupInterval {
		opts.Logger.Warn("cleanup interval too small, adjusting to %v", minCleanupInterval)
		cleanupInterval = minCleanupInterval
	}
	mgr := &Manager{
		store:           opts.Store,
		logger:          opts.Logger,
		ttl:             ttl,
		now:             time.Now,
		cleanupInterval: cleanupInterval,
		cleanupStop:     make(chan struct{}),
	}

	go mgr.runCleanup()
	return mgr, nil
}

func (m *Manager) runCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A failed sweep is logged and ignored, never fatal.
			if err := m.store.CleanupExpired(context.Background()); err != nil {
				m.logger.Warn("session store cleanup failed: %v", err)
			}
		case <-m.cleanupStop:
			return
		}
	}
}

// Issue mints a new session for the given client address. Tokens combine a
// UUID with random bytes so they are never guessable or reissued.
func (m *Manager) Issue(ctx context.Context, clientAddress string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	token, err := mintToken()
	if err != nil {
		return Session{}, fmt.Errorf("mint session token: %w", err)
	}

	now := m.now()
	session := Session{
		Token:         token,
		ClientAddress: clientAddress,
		IssuedAt:      now,
		ExpiresAt:     now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, session); err != nil {
		m.logger.Error("failed to persist session: %v", err)
		return Session{}, err
	}
	m.logger.Debug("issued session for %s", clientAddress)
	return session, nil
}

// Validate reports whether the token matches an unexpired session.
func (m *Manager) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, err := m.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke destroys the session. Revoking an unknown token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if err := m.store.Delete(ctx, token); err != nil {
		m.logger.Error("failed to revoke session: %v", err)
		return err
	}
	return nil
}

// Stats returns debug information from the store backend.
func (m *Manager) Stats(ctx context.Context) (map[string]any, error) {
	return m.store.Stats(ctx)
}

// Close stops the sweep and releases the store.
func (m *Manager) Close() error {
	m.cleanupOnce.Do(func() {
		close(m.cleanupStop)
	})
	if err := m.store.Close(context.Background()); err != nil {
		m.logger.Error("failed closing session store: %v", err)
		return err
	}
	return nil
}

func mintToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return uuid.NewString() + hex.EncodeToString(buf), nil
}
