package editbuf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
)

var (
	ErrNotOpen     = errors.New("edit buffer is not open")
	ErrAlreadyOpen = errors.New("edit buffer is already open")
)

type State string

const (
	StateClosed    State = "closed"
	StateOpenClean State = "open_clean"
	StateOpenDirty State = "open_dirty"
)

// Sink persists a committed edit.
type Sink interface {
	SaveEdit(ctx context.Context, entry domain.CatalogEntry) error
}

// Snapshot is the buffer as the edit form renders it.
type Snapshot struct {
	State    State                `json:"state"`
	Original *domain.CatalogEntry `json:"original,omitempty"`
	Working  *domain.CatalogEntry `json:"working,omitempty"`
	Dirty    bool                 `json:"dirty"`
	Error    string               `json:"error,omitempty"`
}

// Buffer holds at most one in-progress edit. Operations are serialized and
// Commit holds the buffer while the sink saves.
type Buffer struct {
	mu       sync.Mutex
	sink     Sink
	journal  journal.Recorder
	log      *slog.Logger
	state    State
	original domain.CatalogEntry
	working  domain.CatalogEntry
	lastErr  error
}

func New(sink Sink, rec journal.Recorder, log *slog.Logger) *Buffer {
	return &Buffer{
		sink:    sink,
		journal: rec,
		log:     log,
		state:   StateClosed,
	}
}

// Begin opens the buffer on a copy of entry.
func (b *Buffer) Begin(entry domain.CatalogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		return ErrAlreadyOpen
	}
	b.original = entry.Clone()
	b.working = entry.Clone()
	b.state = StateOpenClean
	b.lastErr = nil
	return nil
}

// Update sets one field of the working copy. Numeric fields never fail to
// parse: anything that is not a finite number becomes 0.
func (b *Buffer) Update(field, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return ErrNotOpen
	}
	if err := setField(&b.working, field, value); err != nil {
		return err
	}
	b.state = StateOpenDirty
	return nil
}

// Commit validates the working copy and hands it to the sink. The buffer
// closes only when the sink accepts the edit.
func (b *Buffer) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return ErrNotOpen
	}
	id := b.working.ID
	if err := domain.ValidateEntry(b.working); err != nil {
		b.lastErr = err
		b.log.InfoContext(ctx, "edit rejected", "product_id", id, "error", err)
		b.journal.Record(ctx, journal.NewEvent(journal.EditRejected, id, journal.Detail(err)))
		return err
	}
	if err := b.sink.SaveEdit(ctx, b.working.Clone()); err != nil {
		b.lastErr = err
		return fmt.Errorf("commit edit of product %d: %w", id, err)
	}
	b.reset()
	return nil
}

// Cancel discards the working copy.
func (b *Buffer) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return ErrNotOpen
	}
	b.reset()
	return nil
}

func (b *Buffer) reset() {
	b.state = StateClosed
	b.original = domain.CatalogEntry{}
	b.working = domain.CatalogEntry{}
	b.lastErr = nil
}

func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Buffer) Working() (domain.CatalogEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return domain.CatalogEntry{}, false
	}
	return b.working.Clone(), true
}

func (b *Buffer) Original() (domain.CatalogEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return domain.CatalogEntry{}, false
	}
	return b.original.Clone(), true
}

// IsDirty reports whether the working copy differs from the original.
// Unlike State it is false when updates restored the original values.
func (b *Buffer) IsDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state != StateClosed && !b.working.Equal(b.original)
}

// LastError is the most recent rejected or failed commit of the open edit.
func (b *Buffer) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

func (b *Buffer) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{State: b.state}
	if b.state == StateClosed {
		return s
	}
	original, working := b.original.Clone(), b.working.Clone()
	s.Original = &original
	s.Working = &working
	s.Dirty = !working.Equal(original)
	if b.lastErr != nil {
		s.Error = b.lastErr.Error()
	}
	return s
}
