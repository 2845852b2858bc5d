package editbuf

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mu    sync.Mutex
	err   error
	saved []domain.CatalogEntry
}

func (s *mockSink) SaveEdit(_ context.Context, e domain.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, e)
	return nil
}

type mockRecorder struct {
	events []journal.Event
}

func (r *mockRecorder) Record(_ context.Context, e journal.Event) {
	r.events = append(r.events, e)
}

var product = domain.CatalogEntry{
	ID:                 1,
	Title:              "iPhone 9",
	Description:        "An apple mobile",
	Category:           "smartphones",
	Price:              549,
	DiscountPercentage: 12.96,
	Rating:             4.69,
	Stock:              94,
	Images:             []string{"1.jpg", "2.jpg"},
}

func setupBuffer(t *testing.T) (*Buffer, *mockSink, *mockRecorder) {
	sink := &mockSink{}
	rec := &mockRecorder{}
	return New(sink, rec, logger.Discard()), sink, rec
}

func TestBegin_OpensCleanCopy(t *testing.T) {
	buf, _, _ := setupBuffer(t)

	require.NoError(t, buf.Begin(product))

	assert.Equal(t, StateOpenClean, buf.State())
	assert.False(t, buf.IsDirty())
	working, ok := buf.Working()
	require.True(t, ok)
	assert.True(t, working.Equal(product))

	working.Images[0] = "changed.jpg"
	again, _ := buf.Working()
	assert.Equal(t, "1.jpg", again.Images[0], "Working returns a copy")
}

func TestBegin_WhileOpen(t *testing.T) {
	buf, _, _ := setupBuffer(t)
	require.NoError(t, buf.Begin(product))

	err := buf.Begin(domain.CatalogEntry{ID: 2})

	require.ErrorIs(t, err, ErrAlreadyOpen)
	original, _ := buf.Original()
	assert.Equal(t, int64(1), original.ID)
}

func TestBegin_DoesNotAliasCaller(t *testing.T) {
	buf, _, _ := setupBuffer(t)
	entry := product.Clone()
	require.NoError(t, buf.Begin(entry))

	entry.Images[0] = "mutated.jpg"

	original, _ := buf.Original()
	assert.Equal(t, "1.jpg", original.Images[0])
}

func TestClosedBuffer(t *testing.T) {
	buf, _, _ := setupBuffer(t)

	assert.Equal(t, StateClosed, buf.State())
	assert.ErrorIs(t, buf.Update("title", "x"), ErrNotOpen)
	assert.ErrorIs(t, buf.Commit(context.Background()), ErrNotOpen)
	assert.ErrorIs(t, buf.Cancel(), ErrNotOpen)
	_, ok := buf.Working()
	assert.False(t, ok)
	assert.False(t, buf.IsDirty())
	assert.Equal(t, Snapshot{State: StateClosed}, buf.Snapshot())
}

func TestUpdate_TouchesWorkingOnly(t *testing.T) {
	buf, _, _ := setupBuffer(t)
	require.NoError(t, buf.Begin(product))

	require.NoError(t, buf.Update("title", "iPhone X"))
	require.NoError(t, buf.Update("images", " a.jpg, ,b.jpg "))

	working, _ := buf.Working()
	original, _ := buf.Original()
	assert.Equal(t, "iPhone X", working.Title)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, working.Images)
	assert.Equal(t, "iPhone 9", original.Title)
	assert.Equal(t, []string{"1.jpg", "2.jpg"}, original.Images)
	assert.Equal(t, StateOpenDirty, buf.State())
	assert.True(t, buf.IsDirty())
}

func TestUpdate_NumericCoercion(t *testing.T) {
	tests := []struct {
		field string
		value string
		check func(t *testing.T, e domain.CatalogEntry)
	}{
		{"price", "12.5", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 12.5, e.Price) }},
		{"price", "abc", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 0.0, e.Price) }},
		{"price", "NaN", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 0.0, e.Price) }},
		{"price", "Inf", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 0.0, e.Price) }},
		{"price", "1e400", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 0.0, e.Price) }},
		{"rating", " 4.2 ", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 4.2, e.Rating) }},
		{"discountPercentage", "", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 0.0, e.DiscountPercentage) }},
		{"weight", "3", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 3.0, e.Weight) }},
		{"stock", "7", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 7, e.Stock) }},
		{"stock", "3.7", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 3, e.Stock) }},
		{"stock", "many", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, 0, e.Stock) }},
		{"minimumOrderQuantity", "-2", func(t *testing.T, e domain.CatalogEntry) { assert.Equal(t, -2, e.MinimumOrderQuantity) }},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			buf, _, _ := setupBuffer(t)
			require.NoError(t, buf.Begin(product))

			require.NoError(t, buf.Update(tt.field, tt.value))

			working, _ := buf.Working()
			tt.check(t, working)
		})
	}
}

func TestUpdate_UnknownField(t *testing.T) {
	buf, _, _ := setupBuffer(t)
	require.NoError(t, buf.Begin(product))

	err := buf.Update("id", "5")

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)
	assert.Equal(t, StateOpenClean, buf.State())
}

func TestUpdate_RestoringValueIsNotDirty(t *testing.T) {
	buf, _, _ := setupBuffer(t)
	require.NoError(t, buf.Begin(product))

	require.NoError(t, buf.Update("title", "other"))
	require.NoError(t, buf.Update("title", product.Title))

	assert.Equal(t, StateOpenDirty, buf.State())
	assert.False(t, buf.IsDirty())
	assert.False(t, buf.Snapshot().Dirty)
}

func TestCommit_InvalidStaysOpen(t *testing.T) {
	tests := []struct {
		field string
		value string
	}{
		{"title", "  "},
		{"price", "abc"},
		{"price", "-1"},
		{"discountPercentage", "101"},
		{"rating", "5.5"},
		{"stock", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			buf, sink, rec := setupBuffer(t)
			require.NoError(t, buf.Begin(product))
			require.NoError(t, buf.Update(tt.field, tt.value))

			err := buf.Commit(context.Background())

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, StateOpenDirty, buf.State())
			assert.Empty(t, sink.saved)
			require.Len(t, rec.events, 1)
			assert.Equal(t, journal.EditRejected, rec.events[0].Type)
			assert.Equal(t, err.Error(), buf.Snapshot().Error)
		})
	}
}

func TestCommit_SavesAndCloses(t *testing.T) {
	buf, sink, _ := setupBuffer(t)
	require.NoError(t, buf.Begin(product))
	require.NoError(t, buf.Update("title", "iPhone X"))
	require.NoError(t, buf.Update("price", "600"))

	require.NoError(t, buf.Commit(context.Background()))

	assert.Equal(t, StateClosed, buf.State())
	require.Len(t, sink.saved, 1)
	assert.Equal(t, "iPhone X", sink.saved[0].Title)
	assert.Equal(t, 600.0, sink.saved[0].Price)
	assert.Equal(t, product.Description, sink.saved[0].Description)

	require.NoError(t, buf.Begin(galaxyEntry()), "buffer can be reopened after commit")
}

func TestCommit_SinkFailureKeepsEdit(t *testing.T) {
	buf, sink, _ := setupBuffer(t)
	sink.err = &domain.FetchError{Op: "update product", StatusCode: 503}
	require.NoError(t, buf.Begin(product))
	require.NoError(t, buf.Update("title", "iPhone X"))

	err := buf.Commit(context.Background())

	require.True(t, domain.IsFetchError(err))
	assert.Equal(t, StateOpenDirty, buf.State())
	working, _ := buf.Working()
	assert.Equal(t, "iPhone X", working.Title)
	assert.True(t, errors.Is(buf.LastError(), sink.err))

	sink.err = nil
	require.NoError(t, buf.Commit(context.Background()))
	assert.Nil(t, buf.LastError())
}

func TestCancel_DiscardsWithoutSaving(t *testing.T) {
	buf, sink, _ := setupBuffer(t)
	require.NoError(t, buf.Begin(product))
	require.NoError(t, buf.Update("title", "discard me"))

	require.NoError(t, buf.Cancel())

	assert.Equal(t, StateClosed, buf.State())
	assert.Empty(t, sink.saved)
	_, ok := buf.Original()
	assert.False(t, ok)
}

func TestFields_AllAccepted(t *testing.T) {
	for _, field := range Fields {
		var e domain.CatalogEntry
		assert.NoError(t, setField(&e, field, "1"), field)
	}
}

func galaxyEntry() domain.CatalogEntry {
	return domain.CatalogEntry{ID: 2, Title: "Samsung Galaxy", Price: 1249}
}
