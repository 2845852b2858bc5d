package catalog

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
)

// listCall is one blocked listing fetch, announced on fakeGateway.calls.
type listCall struct {
	category string
	ctx      context.Context
	release  chan struct{}
}

type fakeGateway struct {
	mu       sync.Mutex
	lists    map[string][]domain.CatalogEntry
	listErr  error
	products map[int64]domain.CatalogEntry
	getErr   error
	cats     []domain.Category
	createID int64

	createErr error
	updateErr error
	deleteErr error

	updated []domain.CatalogEntry
	deleted []int64

	// calls, when set, makes every listing fetch wait for its release.
	calls chan *listCall

	listCalls atomic.Int32
	catCalls  atomic.Int32
	getCalls  atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		lists:    make(map[string][]domain.CatalogEntry),
		products: make(map[int64]domain.CatalogEntry),
	}
}

func (g *fakeGateway) list(ctx context.Context, category string) ([]domain.CatalogEntry, error) {
	g.listCalls.Add(1)
	if g.calls != nil {
		c := &listCall{category: category, ctx: ctx, release: make(chan struct{})}
		g.calls <- c
		<-c.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]domain.CatalogEntry, 0, len(g.lists[category]))
	for _, e := range g.lists[category] {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (g *fakeGateway) ListProducts(ctx context.Context) ([]domain.CatalogEntry, error) {
	return g.list(ctx, domain.AllCategories)
}

func (g *fakeGateway) ListByCategory(ctx context.Context, category string) ([]domain.CatalogEntry, error) {
	return g.list(ctx, category)
}

func (g *fakeGateway) GetProduct(_ context.Context, id int64) (domain.CatalogEntry, error) {
	g.getCalls.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return domain.CatalogEntry{}, g.getErr
	}
	e, ok := g.products[id]
	if !ok {
		return domain.CatalogEntry{}, &domain.NotFoundError{Kind: "product", ID: id}
	}
	return e.Clone(), nil
}

func (g *fakeGateway) Categories(context.Context) ([]domain.Category, error) {
	g.catCalls.Add(1)
	return g.cats, nil
}

func (g *fakeGateway) CreateProduct(_ context.Context, draft domain.CatalogEntry) (domain.CatalogEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return domain.CatalogEntry{}, g.createErr
	}
	draft.ID = g.createID
	return draft, nil
}

func (g *fakeGateway) UpdateProduct(_ context.Context, e domain.CatalogEntry) (domain.CatalogEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateErr != nil {
		return domain.CatalogEntry{}, g.updateErr
	}
	g.updated = append(g.updated, e)
	return e, nil
}

func (g *fakeGateway) DeleteProduct(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *fakeGateway) deletedIDs() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.deleted...)
}

type fakeLookup struct {
	mu      sync.Mutex
	stored  map[int64]domain.CatalogEntry
	forgot  []int64
	entries map[int64]domain.CatalogEntry
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		stored:  make(map[int64]domain.CatalogEntry),
		entries: make(map[int64]domain.CatalogEntry),
	}
}

func (l *fakeLookup) Product(_ context.Context, id int64) (domain.CatalogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		return domain.CatalogEntry{}, &domain.NotFoundError{Kind: "product", ID: id}
	}
	return e, nil
}

func (l *fakeLookup) Store(_ context.Context, e domain.CatalogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stored[e.ID] = e
}

func (l *fakeLookup) Forget(_ context.Context, id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forgot = append(l.forgot, id)
}

func (l *fakeLookup) storedEntry(id int64) (domain.CatalogEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.stored[id]
	return e, ok
}

type mockRecorder struct {
	mu     sync.Mutex
	events []journal.Event
}

func (r *mockRecorder) Record(_ context.Context, e journal.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *mockRecorder) has(t journal.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == t {
			return true
		}
	}
	return false
}
