package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vetrina-server-go/internal/domain/session/model"
)

type memoryStore struct {
	items       map[string]model.Session
	mutex       sync.RWMutex
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory session store.
func NewMemory(cfg Config) Store {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]model.Session),
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Save(_ context.Context, session model.Session) error {
	if session.Token == "" {
		return fmt.Errorf("session token required")
	}

	s.mutex.Lock()
	s.items[session.Token] = session
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Get(_ context.Context, token string) (model.Session, error) {
	s.mutex.RLock()
	session, ok := s.items[token]
	s.mutex.RUnlock()
	if !ok {
		return model.Session{}, ErrNotFound
	}
	if session.Expired(time.Now()) {
		return model.Session{}, ErrNotFound
	}
	return session, nil
}

func (s *memoryStore) Delete(_ context.Context, token string) error {
	s.mutex.Lock()
	delete(s.items, token)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for token, session := range s.items {
		if session.Expired(now) {
			delete(s.items, token)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	now := time.Now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := len(s.items)
	active := 0
	for _, session := range s.items {
		if !session.Expired(now) {
			active++
		}
	}
	return map[string]any{
		"type":   "memory",
		"total":  total,
		"active": active,
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
