package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
)

// ErrSuperseded is returned by a fetch whose result was discarded because a
// newer fetch was dispatched while it was in flight.
var ErrSuperseded = errors.New("fetch superseded by a newer filter")

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Gateway is the remote catalog as the view model uses it.
type Gateway interface {
	ListProducts(ctx context.Context) ([]domain.CatalogEntry, error)
	ListByCategory(ctx context.Context, category string) ([]domain.CatalogEntry, error)
	GetProduct(ctx context.Context, id int64) (domain.CatalogEntry, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	CreateProduct(ctx context.Context, draft domain.CatalogEntry) (domain.CatalogEntry, error)
	UpdateProduct(ctx context.Context, e domain.CatalogEntry) (domain.CatalogEntry, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// EntryLookup serves entry details outside the loaded listing and is kept in
// step with local writes.
type EntryLookup interface {
	Product(ctx context.Context, id int64) (domain.CatalogEntry, error)
	Store(ctx context.Context, e domain.CatalogEntry)
	Forget(ctx context.Context, id int64)
}

type Options struct {
	CategoryTTL time.Duration
	// ReconcileTimeout bounds each background check after a save.
	ReconcileTimeout time.Duration
}

// State is a snapshot of the listing as the user sees it.
type State struct {
	Status    Status                `json:"status"`
	Filter    domain.Filter         `json:"filter"`
	Entries   []domain.CatalogEntry `json:"entries"`
	Loaded    int                   `json:"loaded"`
	Error     string                `json:"error,omitempty"`
	Retryable bool                  `json:"retryable,omitempty"`
	// ActionError is the last failed delete, save or create.
	ActionError string `json:"action_error,omitempty"`
}

// ViewModel owns the loaded listing for one browsing session. Local edits,
// creations and deletions are authoritative for the session and are laid
// over every later fetch result.
type ViewModel struct {
	gateway Gateway
	lookup  EntryLookup
	journal journal.Recorder
	log     *slog.Logger

	mu         sync.RWMutex
	filter     domain.Filter
	listing    []domain.CatalogEntry
	listed     string // category the listing was fetched for
	status     Status
	fetchErr   error
	actionErr  error
	generation uint64
	cancel     context.CancelFunc

	overrides     map[int64]domain.CatalogEntry
	overrideOrder []int64
	tombstones    map[int64]struct{}
	created       map[int64]struct{}

	categories *categoryCache

	// cacheMu orders lookup writes so a stale listing snapshot never lands
	// after a newer local write.
	cacheMu sync.Mutex

	reconcileTimeout time.Duration
	wg               sync.WaitGroup
}

func NewViewModel(gateway Gateway, lookup EntryLookup, rec journal.Recorder, log *slog.Logger, opts Options) *ViewModel {
	if opts.CategoryTTL <= 0 {
		opts.CategoryTTL = 5 * time.Minute
	}
	if opts.ReconcileTimeout <= 0 {
		opts.ReconcileTimeout = 10 * time.Second
	}
	return &ViewModel{
		gateway:          gateway,
		lookup:           lookup,
		journal:          rec,
		log:              log,
		filter:           domain.Filter{Category: domain.AllCategories},
		status:           StatusIdle,
		overrides:        make(map[int64]domain.CatalogEntry),
		tombstones:       make(map[int64]struct{}),
		created:          make(map[int64]struct{}),
		categories:       newCategoryCache(opts.CategoryTTL),
		reconcileTimeout: opts.ReconcileTimeout,
	}
}

// SetCategoryFilter selects a category and fetches its listing. Empty and
// "all" both mean the unfiltered listing.
func (vm *ViewModel) SetCategoryFilter(ctx context.Context, category string) error {
	if domain.IsAllCategories(category) {
		category = domain.AllCategories
	}
	vm.mu.Lock()
	vm.filter.Category = category
	vm.mu.Unlock()
	return vm.load(ctx)
}

// SetSearchTerm narrows the visible entries without any I/O.
func (vm *ViewModel) SetSearchTerm(term string) {
	vm.mu.Lock()
	vm.filter.Search = term
	vm.mu.Unlock()
}

// Refresh re-fetches the listing for the current filter.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	return vm.load(ctx)
}

func (vm *ViewModel) load(ctx context.Context) error {
	vm.mu.Lock()
	vm.generation++
	gen := vm.generation
	category := vm.filter.Category
	if vm.cancel != nil {
		vm.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	vm.cancel = cancel
	vm.status = StatusLoading
	vm.mu.Unlock()
	defer cancel()

	entries, err := vm.fetch(fetchCtx, category)

	vm.mu.Lock()
	if gen != vm.generation {
		vm.mu.Unlock()
		vm.log.DebugContext(ctx, "discarding superseded listing", "category", category, "generation", gen)
		return ErrSuperseded
	}
	vm.cancel = nil
	if err != nil {
		vm.status = StatusError
		vm.fetchErr = err
		if category != vm.listed {
			// rows of another category are not shown under this filter
			vm.listing = nil
			vm.listed = category
		}
		vm.mu.Unlock()
		vm.log.WarnContext(ctx, "listing fetch failed", "category", category, "error", err)
		vm.journal.Record(ctx, journal.NewEvent(journal.CatalogFetchFailed, 0, journal.Detail(err)))
		return err
	}
	vm.listing = vm.overlay(entries, category)
	vm.listed = category
	vm.status = StatusReady
	vm.fetchErr = nil
	loaded := slices.Clone(vm.listing)
	vm.mu.Unlock()

	vm.log.DebugContext(ctx, "listing loaded", "category", category, "count", len(loaded))
	vm.prime(loaded)
	return nil
}

func (vm *ViewModel) fetch(ctx context.Context, category string) ([]domain.CatalogEntry, error) {
	if domain.IsAllCategories(category) {
		return vm.gateway.ListProducts(ctx)
	}
	return vm.gateway.ListByCategory(ctx, category)
}

// overlay applies session-local state to a fetch result. Callers hold mu.
func (vm *ViewModel) overlay(fetched []domain.CatalogEntry, category string) []domain.CatalogEntry {
	f := domain.Filter{Category: category}
	out := make([]domain.CatalogEntry, 0, len(fetched))
	seen := make(map[int64]struct{}, len(fetched))
	for _, e := range fetched {
		if _, gone := vm.tombstones[e.ID]; gone {
			continue
		}
		if o, ok := vm.overrides[e.ID]; ok {
			e = o.Clone()
			if !f.InCategory(e) {
				continue
			}
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	for _, id := range vm.overrideOrder {
		if _, ok := seen[id]; ok {
			continue
		}
		if o := vm.overrides[id]; f.InCategory(o) {
			out = append(out, o.Clone())
		}
	}
	return out
}

// prime hands a loaded listing to the lookup layer so later cart adds resolve
// without a gateway call.
func (vm *ViewModel) prime(entries []domain.CatalogEntry) {
	if vm.lookup == nil || len(entries) == 0 {
		return
	}
	vm.wg.Add(1)
	go func() {
		defer vm.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), vm.reconcileTimeout)
		defer cancel()
		for _, e := range entries {
			vm.remember(ctx, e)
		}
	}()
}

// State returns the visible listing: the loaded entries narrowed by the
// current search term.
func (vm *ViewModel) State() State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	s := State{
		Status:  vm.status,
		Filter:  vm.filter,
		Loaded:  len(vm.listing),
		Entries: make([]domain.CatalogEntry, 0, len(vm.listing)),
	}
	for _, e := range vm.listing {
		if vm.filter.MatchesSearch(e) {
			s.Entries = append(s.Entries, e.Clone())
		}
	}
	if vm.status == StatusError && vm.fetchErr != nil {
		s.Error = vm.fetchErr.Error()
		var fe *domain.FetchError
		s.Retryable = errors.As(vm.fetchErr, &fe) && fe.Retryable()
	}
	if vm.actionErr != nil {
		s.ActionError = vm.actionErr.Error()
	}
	return s
}

// Entry returns one entry for the detail view.
func (vm *ViewModel) Entry(ctx context.Context, id int64) (domain.CatalogEntry, error) {
	vm.mu.RLock()
	if i := vm.indexOf(id); i >= 0 {
		e := vm.listing[i].Clone()
		vm.mu.RUnlock()
		return e, nil
	}
	if o, ok := vm.overrides[id]; ok {
		vm.mu.RUnlock()
		return o.Clone(), nil
	}
	_, gone := vm.tombstones[id]
	vm.mu.RUnlock()

	if gone || vm.lookup == nil {
		return domain.CatalogEntry{}, &domain.NotFoundError{Kind: "product", ID: id}
	}
	return vm.lookup.Product(ctx, id)
}

// DeleteEntry removes an entry remotely and then locally. On failure the
// listing is unchanged.
func (vm *ViewModel) DeleteEntry(ctx context.Context, id int64) error {
	vm.mu.RLock()
	loaded := vm.indexOf(id) >= 0
	_, localOnly := vm.created[id]
	vm.mu.RUnlock()
	if !loaded {
		return &domain.NotFoundError{Kind: "product", ID: id}
	}

	err := vm.gateway.DeleteProduct(ctx, id)
	if err != nil && !(localOnly && domain.IsNotFound(err)) {
		err = fmt.Errorf("delete product %d: %w", id, err)
		vm.failAction(ctx, journal.CatalogDeleteFailed, id, err)
		return err
	}

	vm.mu.Lock()
	if i := vm.indexOf(id); i >= 0 {
		vm.listing = slices.Delete(vm.listing, i, i+1)
	}
	vm.tombstones[id] = struct{}{}
	vm.dropOverride(id)
	delete(vm.created, id)
	vm.actionErr = nil
	vm.mu.Unlock()

	if vm.lookup != nil {
		vm.cacheMu.Lock()
		vm.lookup.Forget(ctx, id)
		vm.cacheMu.Unlock()
	}
	vm.log.InfoContext(ctx, "product deleted", "product_id", id)
	vm.journal.Record(ctx, journal.NewEvent(journal.CatalogDeleted, id, ""))
	return nil
}

// ApplyEdit replaces the loaded entry with the same id and keeps the edited
// copy as the session's authoritative version.
func (vm *ViewModel) ApplyEdit(entry domain.CatalogEntry) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	i := vm.indexOf(entry.ID)
	if i < 0 {
		return &domain.NotFoundError{Kind: "product", ID: entry.ID}
	}
	vm.listing[i] = entry.Clone()
	vm.setOverride(entry)
	return nil
}

// SaveEdit writes an edited entry to the gateway. Once the gateway reports
// success the edit becomes the session's version of the entry, whether or not
// the current listing holds it, and is re-read in the background.
func (vm *ViewModel) SaveEdit(ctx context.Context, entry domain.CatalogEntry) error {
	vm.mu.RLock()
	_, gone := vm.tombstones[entry.ID]
	_, localOnly := vm.created[entry.ID]
	vm.mu.RUnlock()
	if gone {
		return &domain.NotFoundError{Kind: "product", ID: entry.ID}
	}

	_, err := vm.gateway.UpdateProduct(ctx, entry.Clone())
	if err != nil && !(localOnly && domain.IsNotFound(err)) {
		err = fmt.Errorf("update product %d: %w", entry.ID, err)
		vm.failAction(ctx, journal.CatalogUpdateFailed, entry.ID, err)
		return err
	}

	vm.mu.Lock()
	if i := vm.indexOf(entry.ID); i >= 0 {
		vm.listing[i] = entry.Clone()
	}
	vm.setOverride(entry)
	vm.actionErr = nil
	vm.mu.Unlock()

	vm.remember(ctx, entry)
	vm.log.InfoContext(ctx, "product updated", "product_id", entry.ID)
	vm.journal.Record(ctx, journal.NewEvent(journal.CatalogUpdated, entry.ID, ""))
	if !localOnly {
		vm.reconcile(entry.Clone())
	}
	return nil
}

// CreateEntry posts a draft. The gateway assigns the id but may not persist
// the entry, so the submitted copy is kept locally.
func (vm *ViewModel) CreateEntry(ctx context.Context, draft domain.CatalogEntry) (domain.CatalogEntry, error) {
	if err := domain.ValidateDraft(draft); err != nil {
		return domain.CatalogEntry{}, err
	}

	created, err := vm.gateway.CreateProduct(ctx, draft.Clone())
	if err == nil && created.ID <= 0 {
		err = &domain.FetchError{Op: "create product", Err: errors.New("gateway returned no id")}
	}
	if err != nil {
		err = fmt.Errorf("create product: %w", err)
		vm.failAction(ctx, journal.CatalogCreateFailed, 0, err)
		return domain.CatalogEntry{}, err
	}

	e := draft.Clone()
	e.ID = created.ID

	vm.mu.Lock()
	if vm.known(e.ID) {
		// the gateway hands out the same id to every create
		e.ID = vm.nextLocalID()
	}
	vm.created[e.ID] = struct{}{}
	delete(vm.tombstones, e.ID)
	vm.setOverride(e)
	if vm.filter.InCategory(e) {
		vm.listing = append(vm.listing, e.Clone())
	}
	vm.actionErr = nil
	vm.mu.Unlock()

	vm.remember(ctx, e)
	vm.log.InfoContext(ctx, "product created", "product_id", e.ID, "gateway_id", created.ID)
	vm.journal.Record(ctx, journal.NewEvent(journal.CatalogCreated, e.ID, ""))
	return e.Clone(), nil
}

// Close waits for background reconciles and cache priming to finish.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	if vm.cancel != nil {
		vm.cancel()
	}
	vm.mu.Unlock()
	vm.wg.Wait()
}

func (vm *ViewModel) failAction(ctx context.Context, t journal.EventType, id int64, err error) {
	vm.mu.Lock()
	vm.actionErr = err
	vm.mu.Unlock()
	vm.log.WarnContext(ctx, "catalog write failed", "event", string(t), "product_id", id, "error", err)
	vm.journal.Record(ctx, journal.NewEvent(t, id, journal.Detail(err)))
}

// remember writes the session's current version of an entry to the lookup
// layer. Must be called without mu held.
func (vm *ViewModel) remember(ctx context.Context, e domain.CatalogEntry) {
	if vm.lookup == nil {
		return
	}
	vm.cacheMu.Lock()
	defer vm.cacheMu.Unlock()

	vm.mu.RLock()
	if o, ok := vm.overrides[e.ID]; ok {
		e = o.Clone()
	}
	_, gone := vm.tombstones[e.ID]
	vm.mu.RUnlock()
	if !gone {
		vm.lookup.Store(ctx, e)
	}
}

// Callers hold mu for the helpers below.

func (vm *ViewModel) indexOf(id int64) int {
	return slices.IndexFunc(vm.listing, func(e domain.CatalogEntry) bool { return e.ID == id })
}

func (vm *ViewModel) setOverride(e domain.CatalogEntry) {
	if _, ok := vm.overrides[e.ID]; !ok {
		vm.overrideOrder = append(vm.overrideOrder, e.ID)
	}
	vm.overrides[e.ID] = e.Clone()
}

func (vm *ViewModel) dropOverride(id int64) {
	if _, ok := vm.overrides[id]; !ok {
		return
	}
	delete(vm.overrides, id)
	vm.overrideOrder = slices.DeleteFunc(vm.overrideOrder, func(o int64) bool { return o == id })
}

func (vm *ViewModel) known(id int64) bool {
	_, overridden := vm.overrides[id]
	return overridden || vm.indexOf(id) >= 0
}

func (vm *ViewModel) nextLocalID() int64 {
	var top int64
	for _, e := range vm.listing {
		top = max(top, e.ID)
	}
	for id := range vm.overrides {
		top = max(top, id)
	}
	for id := range vm.tombstones {
		top = max(top, id)
	}
	return top + 1
}
