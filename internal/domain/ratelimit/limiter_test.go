package ratelimit

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"vetrina-server-go/internal/platform/storage"
	platformtesting "vetrina-server-go/internal/platform/testing"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *fakeClock, *gorm.DB) {
	t.Helper()
	db := platformtesting.SetupTestDB(t)
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := New(db, cfg, platformtesting.SetupTestLogger(t))
	limiter.now = clock.now
	return limiter, clock, db
}

func TestAdmitUpToLimit(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, Config{
		WindowSize:  time.Minute,
		PublicLimit: 5,
		AdminLimit:  3,
		Retention:   5 * time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !limiter.Admit(ctx, "10.0.0.1", ClassPublic) {
			t.Fatalf("request %d refused below limit", i+1)
		}
	}
	if limiter.Admit(ctx, "10.0.0.1", ClassPublic) {
		t.Fatal("request above limit admitted")
	}
}

func TestWindowReset(t *testing.T) {
	limiter, clock, _ := newTestLimiter(t, Config{
		WindowSize:  time.Minute,
		PublicLimit: 2,
		AdminLimit:  2,
		Retention:   5 * time.Minute,
	})
	ctx := context.Background()

	limiter.Admit(ctx, "10.0.0.1", ClassPublic)
	limiter.Admit(ctx, "10.0.0.1", ClassPublic)
	if limiter.Admit(ctx, "10.0.0.1", ClassPublic) {
		t.Fatal("exhausted window still admitting")
	}

	clock.advance(time.Minute)
	if !limiter.Admit(ctx, "10.0.0.1", ClassPublic) {
		t.Fatal("fresh window refused request")
	}
}

func TestClassAndAddressIndependence(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, Config{
		WindowSize:  time.Minute,
		PublicLimit: 1,
		AdminLimit:  1,
		Retention:   5 * time.Minute,
	})
	ctx := context.Background()

	if !limiter.Admit(ctx, "10.0.0.1", ClassPublic) {
		t.Fatal("first public request refused")
	}
	if limiter.Admit(ctx, "10.0.0.1", ClassPublic) {
		t.Fatal("second public request admitted")
	}
	// Same address, different class keeps its own budget.
	if !limiter.Admit(ctx, "10.0.0.1", ClassAdmin) {
		t.Fatal("admin budget drained by public traffic")
	}
	// Different address is unaffected.
	if !limiter.Admit(ctx, "10.0.0.2", ClassPublic) {
		t.Fatal("separate address drained by another client")
	}
}

func TestAdminLimitApplied(t *testing.T) {
	limiter, _, _ := newTestLimiter(t, Config{
		WindowSize:  time.Minute,
		PublicLimit: 10,
		AdminLimit:  2,
		Retention:   5 * time.Minute,
	})
	ctx := context.Background()

	limiter.Admit(ctx, "10.0.0.1", ClassAdmin)
	limiter.Admit(ctx, "10.0.0.1", ClassAdmin)
	if limiter.Admit(ctx, "10.0.0.1", ClassAdmin) {
		t.Fatal("admin request above admin limit admitted")
	}
}

func TestFailOpenOnStoreError(t *testing.T) {
	limiter, _, db := newTestLimiter(t, Config{
		WindowSize:  time.Minute,
		PublicLimit: 1,
		AdminLimit:  1,
		Retention:   5 * time.Minute,
	})

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db handle: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	if !limiter.Admit(context.Background(), "10.0.0.1", ClassPublic) {
		t.Fatal("store failure should admit the request")
	}
}

func TestSweepRetention(t *testing.T) {
	limiter, clock, db := newTestLimiter(t, Config{
		WindowSize:  time.Minute,
		PublicLimit: 10,
		AdminLimit:  10,
		Retention:   5 * time.Minute,
	})
	ctx := context.Background()

	limiter.Admit(ctx, "10.0.0.1", ClassPublic)
	clock.advance(10 * time.Minute)
	limiter.Admit(ctx, "10.0.0.1", ClassPublic)

	if err := limiter.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var count int64
	if err := db.Model(&storage.RateWindow{}).Count(&count).Error; err != nil {
		t.Fatalf("count windows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the live window, got %d rows", count)
	}
}
