package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"vetrina-server-go/internal/domain/session/model"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	st, err := NewRedis(Config{
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close(ctx)
	})

	now := time.Now()
	session := model.Session{
		Token:         "tok-redis",
		ClientAddress: "198.51.100.4",
		IssuedAt:      now,
		ExpiresAt:     now.Add(time.Hour),
	}
	if err := st.Save(ctx, session); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := st.Get(ctx, session.Token)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Token != session.Token {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := st.Delete(ctx, session.Token); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := st.Get(ctx, session.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	st, err := NewRedis(Config{
		Redis: &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close(ctx)
	})

	now := time.Now()
	session := model.Session{
		Token:     "tok-ttl",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}
	if err := st.Save(ctx, session); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Advancing the fake clock past the TTL drops the key server-side.
	mr.FastForward(2 * time.Minute)

	if _, err := st.Get(ctx, session.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestRedisStoreRejectsExpiredPayload(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	st, err := NewRedis(Config{
		Redis: &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close(ctx)
	})

	session := model.Session{
		Token:     "tok-past",
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := st.Save(ctx, session); err == nil {
		t.Fatalf("expected Save of already-expired session to fail")
	}
}
