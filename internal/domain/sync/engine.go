package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/bytedance/sonic"

	"vetrina-server-go/internal/domain/content"
	"vetrina-server-go/internal/platform/logging"
)

// Status is the per-key sync state of the mirror.
type Status string

const (
	StatusClean      Status = "clean"
	StatusDirty      Status = "dirty"
	StatusRolledBack Status = "rolled_back"
)

// Mirror is the client's full copy of the content state.
type Mirror struct {
	Sections map[string]map[string]interface{} `json:"sections"`
	Items    []content.Item                    `json:"items"`
}

func emptyMirror() Mirror {
	return Mirror{Sections: make(map[string]map[string]interface{})}
}

// cloneItems copies the catalog slice through an encode round trip so
// snapshots never alias live documents.
func cloneItems(items []content.Item) []content.Item {
	if items == nil {
		return nil
	}
	raw, err := sonic.Marshal(items)
	if err != nil {
		return append([]content.Item(nil), items...)
	}
	var out []content.Item
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return append([]content.Item(nil), items...)
	}
	return out
}

// Backend is the server side of the sync engine, normally the HTTP API.
type Backend interface {
	Fetch(ctx context.Context) (map[string]map[string]interface{}, []content.Item, error)
	SaveSection(ctx context.Context, key string, doc map[string]interface{}) error
	CreateItem(ctx context.Context, slug string, doc map[string]interface{}) (content.Item, error)
	UpdateItem(ctx context.Context, id uint, slug string, doc map[string]interface{}) (content.Item, error)
	DeleteItem(ctx context.Context, id uint) error
	Reorder(ctx context.Context, ids []uint) error
}

// Notifier surfaces transient outcome notifications to the operator.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// tempIDBase marks optimistic catalog entries that the server has not
// assigned an id to yet.
const tempIDBase uint = 1 << 30

// Engine applies edits to the mirror immediately, persists them to the local
// cache, and synchronizes with the server through per-key debounced writes.
// Structural catalog operations roll back on failure; plain field edits keep
// the optimistic value and only surface an error.
type Engine struct {
	mu     gosync.Mutex
	mirror Mirror
	status map[string]Status
	nextID uint

	backend  Backend
	sched    Scheduler
	notify   Notifier
	cache    *LocalCache
	debounce time.Duration
	logger   *logging.Logger
}

type EngineOptions struct {
	Backend   Backend
	Scheduler Scheduler
	Notifier  Notifier
	Cache     *LocalCache
	Debounce  time.Duration
	Logger    *logging.Logger
}

func NewEngine(opts EngineOptions) *Engine {
	sched := opts.Scheduler
	if sched == nil {
		sched = NewTimerScheduler()
	}
	notify := opts.Notifier
	if notify == nil {
		notify = nopNotifier{}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 800 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{
		mirror:   emptyMirror(),
		status:   make(map[string]Status),
		nextID:   tempIDBase,
		backend:  opts.Backend,
		sched:    sched,
		notify:   notify,
		cache:    opts.Cache,
		debounce: debounce,
		logger:   logger,
	}
}

// Load seeds the mirror from the local cache (or the defaults when the cache
// is missing or versioned differently), then merges in the server's
// authoritative copy. Server values win per field-group; groups and catalog
// entries the server does not have yet survive from the local side.
func (e *Engine) Load(ctx context.Context) error {
	base := emptyMirror()
	base.Sections = content.DefaultSections()
	for _, seed := range content.DefaultCatalogItems() {
		base.Items = append(base.Items, content.Item{Slug: seed.Slug, Data: seed.Data})
	}
	if e.cache != nil {
		if cached, ok := e.cache.Load(); ok {
			base = cached
		}
	}

	serverSections, serverItems, err := e.backend.Fetch(ctx)
	if err != nil {
		// Offline start: serve the seeded mirror and try again later.
		e.logger.Warn("initial fetch failed, serving local mirror: %v", err)
		e.mu.Lock()
		e.mirror = base
		e.mu.Unlock()
		return err
	}

	merged := Mirror{
		Sections: MergeSections(base.Sections, serverSections),
		Items:    mergeItems(base.Items, serverItems),
	}

	e.mu.Lock()
	e.mirror = merged
	e.mu.Unlock()
	e.persistLocal()
	return nil
}

// mergeItems keeps the server's catalog and order, then preserves local
// entries the server does not know about (defaults or optimistic creates
// that never landed).
func mergeItems(local, server []content.Item) []content.Item {
	out := cloneItems(server)
	known := make(map[string]struct{}, len(server))
	for _, item := range server {
		known[item.Slug] = struct{}{}
	}
	for _, item := range local {
		if _, ok := known[item.Slug]; !ok {
			out = append(out, item)
		}
	}
	return out
}

// Mirror returns a copy of the current mirror.
func (e *Engine) Mirror() Mirror {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Mirror{
		Sections: MergeSections(e.mirror.Sections, nil),
		Items:    cloneItems(e.mirror.Items),
	}
}

// Status reports the sync state for a logical key ("section:hero",
// "item:12", "catalog").
func (e *Engine) Status(key string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.status[key]; ok {
		return s
	}
	return StatusClean
}

func (e *Engine) setStatus(key string, s Status) {
	e.mu.Lock()
	e.status[key] = s
	e.mu.Unlock()
}

func (e *Engine) persistLocal() {
	if e.cache == nil {
		return
	}
	if err := e.cache.Save(e.Mirror()); err != nil {
		e.logger.Warn("local mirror persist failed: %v", err)
	}
}

// EditSectionField applies one field edit optimistically and schedules a
// debounced write of the whole section. Edits to the same section within the
// debounce window coalesce into a single write carrying the final values.
func (e *Engine) EditSectionField(sectionKey, field string, value interface{}) {
	e.mu.Lock()
	doc, ok := e.mirror.Sections[sectionKey]
	if !ok {
		doc = make(map[string]interface{})
		e.mirror.Sections[sectionKey] = doc
	}
	doc[field] = value
	key := "section:" + sectionKey
	e.status[key] = StatusDirty
	e.mu.Unlock()

	e.persistLocal()
	e.sched.Schedule(key, e.debounce, func() { e.flushSection(sectionKey) })
}

func (e *Engine) flushSection(sectionKey string) {
	e.mu.Lock()
	doc := copyDoc(e.mirror.Sections[sectionKey])
	e.mu.Unlock()

	key := "section:" + sectionKey
	if err := e.backend.SaveSection(context.Background(), sectionKey, doc); err != nil {
		// Field edits keep the optimistic value: discarding text the
		// operator is still typing hurts more than a stale server copy.
		e.setStatus(key, StatusClean)
		e.notify.Error(fmt.Sprintf("could not save %s: %v", sectionKey, err))
		return
	}
	e.setStatus(key, StatusClean)
	e.persistLocal()
	e.notify.Success(fmt.Sprintf("saved %s", sectionKey))
}

// CreateItem appends an optimistic catalog entry with a temporary id and
// schedules its creation. On failure the entry is rolled back; on success
// the server's canonical row (real id, deduplicated slug) replaces it.
func (e *Engine) CreateItem(slug string, doc map[string]interface{}) uint {
	e.mu.Lock()
	snapshot := cloneItems(e.mirror.Items)
	e.nextID++
	tempID := e.nextID
	e.mirror.Items = append(e.mirror.Items, content.Item{
		ID:        tempID,
		Slug:      slug,
		SortOrder: len(e.mirror.Items),
		Data:      doc,
	})
	e.status["catalog"] = StatusDirty
	e.mu.Unlock()

	e.persistLocal()
	e.sched.Schedule(fmt.Sprintf("create:%d", tempID), e.debounce, func() {
		e.flushCreate(tempID, slug, doc, snapshot)
	})
	return tempID
}

func (e *Engine) flushCreate(tempID uint, slug string, doc map[string]interface{}, snapshot []content.Item) {
	created, err := e.backend.CreateItem(context.Background(), slug, doc)
	if err != nil {
		e.rollbackCatalog(snapshot, fmt.Sprintf("could not create %s: %v", slug, err))
		return
	}

	e.mu.Lock()
	for i, item := range e.mirror.Items {
		if item.ID == tempID {
			e.mirror.Items[i] = created
			break
		}
	}
	e.status["catalog"] = StatusClean
	e.mu.Unlock()
	e.persistLocal()
	e.notify.Success(fmt.Sprintf("created %s", created.Slug))
}

// DeleteItem removes the entry locally and schedules the server delete,
// restoring the snapshot when the delete fails.
func (e *Engine) DeleteItem(id uint) {
	e.mu.Lock()
	snapshot := cloneItems(e.mirror.Items)
	kept := e.mirror.Items[:0]
	for _, item := range e.mirror.Items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	e.mirror.Items = kept
	e.status["catalog"] = StatusDirty
	e.mu.Unlock()

	e.persistLocal()
	e.sched.Schedule(fmt.Sprintf("delete:%d", id), e.debounce, func() {
		if err := e.backend.DeleteItem(context.Background(), id); err != nil {
			e.rollbackCatalog(snapshot, fmt.Sprintf("could not delete item: %v", err))
			return
		}
		e.setStatus("catalog", StatusClean)
		e.persistLocal()
		e.notify.Success("item deleted")
	})
}

// ReorderItems rewrites the local order and schedules the bulk reorder.
// Failure restores the previous order wholesale.
func (e *Engine) ReorderItems(ids []uint) {
	e.mu.Lock()
	snapshot := cloneItems(e.mirror.Items)
	byID := make(map[uint]content.Item, len(e.mirror.Items))
	for _, item := range e.mirror.Items {
		byID[item.ID] = item
	}
	reordered := make([]content.Item, 0, len(e.mirror.Items))
	seen := make(map[uint]struct{}, len(ids))
	for position, id := range ids {
		item, ok := byID[id]
		if !ok {
			continue
		}
		item.SortOrder = position
		reordered = append(reordered, item)
		seen[id] = struct{}{}
	}
	for _, item := range e.mirror.Items {
		if _, ok := seen[item.ID]; !ok {
			reordered = append(reordered, item)
		}
	}
	e.mirror.Items = reordered
	e.status["catalog"] = StatusDirty
	e.mu.Unlock()

	e.persistLocal()
	e.sched.Schedule("reorder", e.debounce, func() {
		if err := e.backend.Reorder(context.Background(), ids); err != nil {
			e.rollbackCatalog(snapshot, fmt.Sprintf("could not reorder: %v", err))
			return
		}
		e.setStatus("catalog", StatusClean)
		e.persistLocal()
		e.notify.Success("order saved")
	})
}

// EditItemField applies a single data-field edit to a catalog item with the
// same coalescing write behavior as section edits. The optimistic value is
// kept on failure.
func (e *Engine) EditItemField(id uint, field string, value interface{}) {
	e.mu.Lock()
	for i := range e.mirror.Items {
		if e.mirror.Items[i].ID == id {
			if e.mirror.Items[i].Data == nil {
				e.mirror.Items[i].Data = make(map[string]interface{})
			}
			e.mirror.Items[i].Data[field] = value
			break
		}
	}
	key := fmt.Sprintf("item:%d", id)
	e.status[key] = StatusDirty
	e.mu.Unlock()

	e.persistLocal()
	e.sched.Schedule(key, e.debounce, func() { e.flushItem(id) })
}

func (e *Engine) flushItem(id uint) {
	e.mu.Lock()
	var doc map[string]interface{}
	var slug string
	for _, item := range e.mirror.Items {
		if item.ID == id {
			doc = copyDoc(item.Data)
			slug = item.Slug
			break
		}
	}
	e.mu.Unlock()
	if doc == nil {
		return
	}

	key := fmt.Sprintf("item:%d", id)
	updated, err := e.backend.UpdateItem(context.Background(), id, "", doc)
	if err != nil {
		e.setStatus(key, StatusClean)
		e.notify.Error(fmt.Sprintf("could not save %s: %v", slug, err))
		return
	}

	// Correct the mirror with whatever the server canonicalized.
	e.mu.Lock()
	for i := range e.mirror.Items {
		if e.mirror.Items[i].ID == id {
			e.mirror.Items[i] = updated
			break
		}
	}
	e.status[key] = StatusClean
	e.mu.Unlock()
	e.persistLocal()
	e.notify.Success(fmt.Sprintf("saved %s", updated.Slug))
}

func (e *Engine) rollbackCatalog(snapshot []content.Item, message string) {
	e.mu.Lock()
	e.mirror.Items = snapshot
	e.status["catalog"] = StatusRolledBack
	e.mu.Unlock()
	e.persistLocal()
	e.notify.Error(message)
}

// Close stops all pending timers without flushing them.
func (e *Engine) Close() {
	e.sched.Stop()
}
