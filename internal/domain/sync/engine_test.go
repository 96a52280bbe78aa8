package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vetrina-server-go/internal/domain/content"
	"vetrina-server-go/internal/platform/errors"
	platformtesting "vetrina-server-go/internal/platform/testing"
)

// manualScheduler collects scheduled tasks so tests fire the debounce
// explicitly instead of sleeping.
type manualScheduler struct {
	tasks map[string]func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(map[string]func())}
}

func (s *manualScheduler) Schedule(key string, _ time.Duration, fn func()) {
	s.tasks[key] = fn
}

func (s *manualScheduler) Cancel(key string) { delete(s.tasks, key) }

func (s *manualScheduler) Stop() { s.tasks = make(map[string]func()) }

func (s *manualScheduler) fire(t *testing.T, key string) {
	t.Helper()
	fn, ok := s.tasks[key]
	if !ok {
		t.Fatalf("no pending task for key %q", key)
	}
	delete(s.tasks, key)
	fn()
}

type savedSection struct {
	key string
	doc map[string]interface{}
}

// fakeBackend records calls and returns scripted results.
type fakeBackend struct {
	sections     map[string]map[string]interface{}
	items        []content.Item
	fetchErr     error
	saveErr      error
	createErr    error
	updateErr    error
	deleteErr    error
	reorderErr   error
	saved        []savedSection
	created      []string
	createdItem  content.Item
	updatedItem  content.Item
	reorderCalls [][]uint
}

func (b *fakeBackend) Fetch(ctx context.Context) (map[string]map[string]interface{}, []content.Item, error) {
	return b.sections, b.items, b.fetchErr
}

func (b *fakeBackend) SaveSection(ctx context.Context, key string, doc map[string]interface{}) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saved = append(b.saved, savedSection{key: key, doc: doc})
	return nil
}

func (b *fakeBackend) CreateItem(ctx context.Context, slug string, doc map[string]interface{}) (content.Item, error) {
	if b.createErr != nil {
		return content.Item{}, b.createErr
	}
	b.created = append(b.created, slug)
	return b.createdItem, nil
}

func (b *fakeBackend) UpdateItem(ctx context.Context, id uint, slug string, doc map[string]interface{}) (content.Item, error) {
	if b.updateErr != nil {
		return content.Item{}, b.updateErr
	}
	return b.updatedItem, nil
}

func (b *fakeBackend) DeleteItem(ctx context.Context, id uint) error { return b.deleteErr }

func (b *fakeBackend) Reorder(ctx context.Context, ids []uint) error {
	if b.reorderErr != nil {
		return b.reorderErr
	}
	b.reorderCalls = append(b.reorderCalls, ids)
	return nil
}

type recordingNotifier struct {
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(message string) { n.successes = append(n.successes, message) }
func (n *recordingNotifier) Error(message string)   { n.failures = append(n.failures, message) }

func newTestEngine(t *testing.T, backend *fakeBackend) (*Engine, *manualScheduler, *recordingNotifier) {
	t.Helper()
	sched := newManualScheduler()
	notify := &recordingNotifier{}
	engine := NewEngine(EngineOptions{
		Backend:   backend,
		Scheduler: sched,
		Notifier:  notify,
		Debounce:  800 * time.Millisecond,
		Logger:    platformtesting.SetupTestLogger(t),
	})
	return engine, sched, notify
}

func TestRapidEditsCoalesceIntoOneWrite(t *testing.T) {
	backend := &fakeBackend{}
	engine, sched, _ := newTestEngine(t, backend)

	engine.EditSectionField("hero", "title", "C")
	engine.EditSectionField("hero", "title", "Cr")
	engine.EditSectionField("hero", "title", "Crafted")

	if len(sched.tasks) != 1 {
		t.Fatalf("expected one pending write, got %d", len(sched.tasks))
	}
	sched.fire(t, "section:hero")

	if len(backend.saved) != 1 {
		t.Fatalf("expected exactly one network write, got %d", len(backend.saved))
	}
	platformtesting.AssertEqual(t, "Crafted", backend.saved[0].doc["title"])
	platformtesting.AssertEqual(t, StatusClean, engine.Status("section:hero"))
}

func TestEditsToDifferentSectionsAreIndependent(t *testing.T) {
	backend := &fakeBackend{}
	engine, sched, _ := newTestEngine(t, backend)

	engine.EditSectionField("hero", "title", "x")
	engine.EditSectionField("contact", "phone", "y")

	if len(sched.tasks) != 2 {
		t.Fatalf("expected two independent pending writes, got %d", len(sched.tasks))
	}
	sched.fire(t, "section:hero")
	sched.fire(t, "section:contact")
	platformtesting.AssertEqual(t, 2, len(backend.saved))
}

func TestEditIsOptimisticBeforeFlush(t *testing.T) {
	engine, _, _ := newTestEngine(t, &fakeBackend{})

	engine.EditSectionField("hero", "title", "instant")

	mirror := engine.Mirror()
	platformtesting.AssertEqual(t, "instant", mirror.Sections["hero"]["title"])
	platformtesting.AssertEqual(t, StatusDirty, engine.Status("section:hero"))
}

func TestSectionSaveFailureKeepsOptimisticValue(t *testing.T) {
	backend := &fakeBackend{saveErr: errors.New(errors.KindStorage, "test", "store down")}
	engine, sched, notify := newTestEngine(t, backend)

	engine.EditSectionField("hero", "title", "typed text")
	sched.fire(t, "section:hero")

	mirror := engine.Mirror()
	platformtesting.AssertEqual(t, "typed text", mirror.Sections["hero"]["title"])
	if len(notify.failures) != 1 {
		t.Fatalf("expected one error notification, got %d", len(notify.failures))
	}
}

func TestCreateRollsBackOnConflict(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New(errors.KindConflict, "test", "slug already in use")}
	engine, sched, notify := newTestEngine(t, backend)

	tempID := engine.CreateItem("milano-sofa", map[string]interface{}{"name": "Milano Sofa"})

	mirror := engine.Mirror()
	platformtesting.AssertEqual(t, 1, len(mirror.Items))
	platformtesting.AssertEqual(t, StatusDirty, engine.Status("catalog"))

	sched.fire(t, testCreateKey(tempID))

	mirror = engine.Mirror()
	if len(mirror.Items) != 0 {
		t.Fatal("optimistic entry survived a failed create")
	}
	platformtesting.AssertEqual(t, StatusRolledBack, engine.Status("catalog"))
	if len(notify.failures) != 1 {
		t.Fatalf("expected one error notification, got %d", len(notify.failures))
	}
}

func TestCreateAdoptsCanonicalServerRow(t *testing.T) {
	backend := &fakeBackend{
		createdItem: content.Item{ID: 7, Slug: "milano-sofa-2", SortOrder: 0,
			Data: map[string]interface{}{"name": "Milano Sofa"}},
	}
	engine, sched, _ := newTestEngine(t, backend)

	tempID := engine.CreateItem("Milano Sofa 2", map[string]interface{}{"name": "Milano Sofa"})
	sched.fire(t, testCreateKey(tempID))

	mirror := engine.Mirror()
	platformtesting.AssertEqual(t, 1, len(mirror.Items))
	platformtesting.AssertEqual(t, uint(7), mirror.Items[0].ID)
	platformtesting.AssertEqual(t, "milano-sofa-2", mirror.Items[0].Slug)
	platformtesting.AssertEqual(t, StatusClean, engine.Status("catalog"))
}

func TestReorderRollsBackOnFailure(t *testing.T) {
	backend := &fakeBackend{
		items: []content.Item{
			{ID: 1, Slug: "a", SortOrder: 0},
			{ID: 2, Slug: "b", SortOrder: 1},
		},
		reorderErr: errors.New(errors.KindStorage, "test", "store down"),
	}
	engine, sched, _ := newTestEngine(t, backend)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	engine.ReorderItems([]uint{2, 1})
	mirror := engine.Mirror()
	platformtesting.AssertEqual(t, "b", mirror.Items[0].Slug)

	sched.fire(t, "reorder")

	mirror = engine.Mirror()
	platformtesting.AssertEqual(t, "a", mirror.Items[0].Slug)
	platformtesting.AssertEqual(t, StatusRolledBack, engine.Status("catalog"))
}

func TestDeleteRollsBackOnFailure(t *testing.T) {
	backend := &fakeBackend{
		items:     []content.Item{{ID: 1, Slug: "a", SortOrder: 0}},
		deleteErr: errors.New(errors.KindStorage, "test", "store down"),
	}
	engine, sched, _ := newTestEngine(t, backend)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	hasSlug := func(slug string) bool {
		for _, item := range engine.Mirror().Items {
			if item.Slug == slug {
				return true
			}
		}
		return false
	}

	engine.DeleteItem(1)
	if hasSlug("a") {
		t.Fatal("optimistic delete not applied")
	}

	sched.fire(t, "delete:1")
	if !hasSlug("a") {
		t.Fatal("failed delete did not restore the item")
	}
}

func TestLoadMergesServerIntoDefaults(t *testing.T) {
	backend := &fakeBackend{
		sections: map[string]map[string]interface{}{
			"hero":    {"title": "Server title"},
			"contact": {"phone": "+1 555 0100"},
		},
		items: []content.Item{{ID: 1, Slug: "server-item", SortOrder: 0}},
	}
	engine, _, _ := newTestEngine(t, backend)
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	mirror := engine.Mirror()

	// Server-wins group replaced wholesale.
	platformtesting.AssertEqual(t, "Server title", mirror.Sections["hero"]["title"])
	if _, ok := mirror.Sections["hero"]["subtitle"]; ok {
		t.Fatal("server-wins group kept a default field")
	}
	// Extends group keeps default-only fields alongside server values.
	platformtesting.AssertEqual(t, "+1 555 0100", mirror.Sections["contact"]["phone"])
	if mirror.Sections["contact"]["email"] == nil {
		t.Fatal("default-only field dropped from extends group")
	}
	// Default groups the server never returned survive.
	if mirror.Sections["about"] == nil {
		t.Fatal("default section dropped")
	}

	// Server catalog leads, default entries unknown to the server follow.
	platformtesting.AssertEqual(t, "server-item", mirror.Items[0].Slug)
	slugs := make(map[string]bool)
	for _, item := range mirror.Items {
		slugs[item.Slug] = true
	}
	if !slugs["milano-sofa"] {
		t.Fatal("default catalog entry dropped by merge")
	}
}

func TestLoadServesLocalMirrorWhenFetchFails(t *testing.T) {
	backend := &fakeBackend{fetchErr: errors.New(errors.KindTransport, "test", "offline")}
	engine, _, _ := newTestEngine(t, backend)

	err := engine.Load(context.Background())
	platformtesting.AssertError(t, err)

	mirror := engine.Mirror()
	if len(mirror.Sections) == 0 {
		t.Fatal("offline load should still seed defaults")
	}
}

func testCreateKey(tempID uint) string {
	return fmt.Sprintf("create:%d", tempID)
}
