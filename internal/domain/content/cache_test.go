package content

import (
	"bytes"
	"context"
	"testing"
	"time"

	"vetrina-server-go/internal/domain/eventbus"
	"vetrina-server-go/internal/platform/errors"
	platformtesting "vetrina-server-go/internal/platform/testing"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func countingLoader(payload interface{}) (Loader, *int) {
	calls := new(int)
	return func(ctx context.Context) (interface{}, error) {
		*calls++
		return payload, nil
	}, calls
}

func TestCacheServesIdenticalBytesWithinTTL(t *testing.T) {
	cache := NewCache(CacheOptions{
		TTL:    5 * time.Minute,
		Bus:    eventbus.New(),
		Logger: platformtesting.SetupTestLogger(t),
	})
	loader, calls := countingLoader(map[string]interface{}{"sections": map[string]interface{}{"hero": "x"}})
	ctx := context.Background()

	first, err := cache.GetOrLoad(ctx, SlotFull, loader)
	platformtesting.AssertNoError(t, err)
	second, err := cache.GetOrLoad(ctx, SlotFull, loader)
	platformtesting.AssertNoError(t, err)

	if !bytes.Equal(first, second) {
		t.Fatal("cached reads within the TTL must be byte-identical")
	}
	platformtesting.AssertEqual(t, 1, *calls)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	cache := NewCache(CacheOptions{
		TTL:    5 * time.Minute,
		Bus:    eventbus.New(),
		Logger: platformtesting.SetupTestLogger(t),
	})
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache.now = clock.now

	loader, calls := countingLoader("payload")
	ctx := context.Background()

	_, err := cache.GetOrLoad(ctx, SlotItems, loader)
	platformtesting.AssertNoError(t, err)

	clock.advance(6 * time.Minute)
	_, err = cache.GetOrLoad(ctx, SlotItems, loader)
	platformtesting.AssertNoError(t, err)
	platformtesting.AssertEqual(t, 2, *calls)
}

func TestCacheSlotsAreIndependent(t *testing.T) {
	cache := NewCache(CacheOptions{
		TTL:    5 * time.Minute,
		Bus:    eventbus.New(),
		Logger: platformtesting.SetupTestLogger(t),
	})
	fullLoader, fullCalls := countingLoader("full")
	itemsLoader, itemsCalls := countingLoader("items")
	ctx := context.Background()

	_, _ = cache.GetOrLoad(ctx, SlotFull, fullLoader)
	_, _ = cache.GetOrLoad(ctx, SlotItems, itemsLoader)
	_, _ = cache.GetOrLoad(ctx, SlotFull, fullLoader)

	platformtesting.AssertEqual(t, 1, *fullCalls)
	platformtesting.AssertEqual(t, 1, *itemsCalls)
}

func TestWriteInvalidatesAllSlots(t *testing.T) {
	bus := eventbus.New()
	db := platformtesting.SetupTestDB(t)
	svc := NewService(Options{DB: db, Bus: bus, Logger: platformtesting.SetupTestLogger(t)})
	cache := NewCache(CacheOptions{
		TTL:    5 * time.Minute,
		Bus:    bus,
		Logger: platformtesting.SetupTestLogger(t),
	})
	ctx := context.Background()

	load := func(ctx context.Context) (interface{}, error) { return svc.FullPayload(ctx) }
	before, err := cache.GetOrLoad(ctx, SlotFull, load)
	platformtesting.AssertNoError(t, err)

	err = svc.UpsertSection(ctx, "hero", map[string]interface{}{"title": "after the write"})
	platformtesting.AssertNoError(t, err)

	after, err := cache.GetOrLoad(ctx, SlotFull, load)
	platformtesting.AssertNoError(t, err)
	if bytes.Equal(before, after) {
		t.Fatal("read after a successful write returned the pre-write payload")
	}
	if !bytes.Contains(after, []byte("after the write")) {
		t.Fatal("post-write payload missing the written value")
	}
}

func TestCacheLoaderErrorPassesThrough(t *testing.T) {
	cache := NewCache(CacheOptions{
		TTL:    5 * time.Minute,
		Bus:    eventbus.New(),
		Logger: platformtesting.SetupTestLogger(t),
	})
	boom := errors.New(errors.KindStorage, "test", "store down")

	_, err := cache.GetOrLoad(context.Background(), SlotFull, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	platformtesting.AssertError(t, err)

	// The failed load must not poison the slot.
	loader, calls := countingLoader("recovered")
	_, err = cache.GetOrLoad(context.Background(), SlotFull, loader)
	platformtesting.AssertNoError(t, err)
	platformtesting.AssertEqual(t, 1, *calls)
}
