package content

import (
	"context"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/bytedance/sonic"

	"vetrina-server-go/internal/domain/eventbus"
	"vetrina-server-go/internal/platform/errors"
	"vetrina-server-go/internal/platform/logging"
)

// Cache slots. The read set is small, so invalidation is coarse: every write
// drops both slots.
const (
	SlotFull  = "full"
	SlotItems = "items"
)

type cacheEntry struct {
	payload  []byte
	cachedAt time.Time
}

// Cache is the read-through cache over the two public read queries. Entries
// hold the encoded payload so cached responses are byte-identical across
// reads within the TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time
}

type CacheOptions struct {
	TTL    time.Duration
	Bus    evbus.Bus
	Logger *logging.Logger
}

// NewCache builds the cache and subscribes it to content-change events.
func NewCache(opts CacheOptions) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	c := &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}

	bus := opts.Bus
	if bus == nil {
		bus = eventbus.Get()
	}
	if err := bus.Subscribe(eventbus.TopicContentChanged, c.InvalidateAll); err != nil {
		logger.Warn("cache could not subscribe to content changes: %v", err)
	}
	return c
}

// Loader produces a fresh payload on cache miss.
type Loader func(ctx context.Context) (interface{}, error)

// GetOrLoad returns the cached payload for slot, or runs loader, caches the
// encoded result and returns it. A loader failure is passed through without
// poisoning the slot.
func (c *Cache) GetOrLoad(ctx context.Context, slot string, loader Loader) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[slot]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.cachedAt) < c.ttl {
		return entry.payload, nil
	}

	value, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := sonic.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(errors.KindDomain, "cache.get_or_load", "encode payload", err)
	}

	c.mu.Lock()
	c.entries[slot] = cacheEntry{payload: payload, cachedAt: c.now()}
	c.mu.Unlock()
	return payload, nil
}

// InvalidateAll drops every slot immediately.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Stats reports the live entry count, used by the health endpoint.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	live := 0
	now := c.now()
	for _, entry := range c.entries {
		if now.Sub(entry.cachedAt) < c.ttl {
			live++
		}
	}
	return map[string]interface{}{
		"slots":   len(c.entries),
		"live":    live,
		"ttl_sec": int(c.ttl.Seconds()),
	}
}
