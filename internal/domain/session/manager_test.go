package session

import (
	"context"
	"testing"
	"time"

	"vetrina-server-go/internal/domain/session/model"
	"vetrina-server-go/internal/domain/session/store"
	"vetrina-server-go/internal/platform/logging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(Options{
		Store:  store.NewMemory(store.Config{}),
		Logger: logging.Nop(),
		TTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	t.Cleanup(func() {
		_ = mgr.Close()
	})
	return mgr
}

func TestManagerIssueValidateRevoke(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	session, err := mgr.Issue(ctx, "203.0.113.10")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if got := session.ExpiresAt.Sub(session.IssuedAt); got != 24*time.Hour {
		t.Fatalf("expected 24h validity window, got %v", got)
	}

	ok, err := mgr.Validate(ctx, session.Token)
	if err != nil || !ok {
		t.Fatalf("expected valid session right after issue, ok=%v err=%v", ok, err)
	}

	if err := mgr.Revoke(ctx, session.Token); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	ok, err = mgr.Validate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if ok {
		t.Fatal("expected invalid session immediately after revoke")
	}
}

func TestManagerRejectsExpiredWithoutLogout(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory(store.Config{})
	mgr, err := NewManager(Options{
		Store:  st,
		Logger: logging.Nop(),
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	t.Cleanup(func() {
		_ = mgr.Close()
	})

	// Seed a session whose 24h window has already elapsed.
	now := time.Now()
	expired := model.Session{
		Token:     "expired-token",
		IssuedAt:  now.Add(-25 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := st.Save(ctx, expired); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	ok, err := mgr.Validate(ctx, expired.Token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if ok {
		t.Fatal("expected expired session to be invalid without explicit logout")
	}
}

func TestManagerTokensNeverRepeat(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := mgr.Issue(ctx, "203.0.113.10")
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		if seen[session.Token] {
			t.Fatalf("token reissued: %s", session.Token)
		}
		seen[session.Token] = true
	}
}

func TestManagerValidateEmptyToken(t *testing.T) {
	mgr := newTestManager(t)
	ok, err := mgr.Validate(context.Background(), "")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if ok {
		t.Fatal("empty token must never validate")
	}
}
