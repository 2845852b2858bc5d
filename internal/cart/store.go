package cart

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/shopspring/decimal"
)

// ProductSource resolves the display details of a product being added.
type ProductSource interface {
	Product(ctx context.Context, id int64) (domain.CatalogEntry, error)
}

// Store is the in-memory cart. Only AddToCart performs I/O, and never while
// holding the lock.
type Store struct {
	mu      sync.Mutex
	lines   map[int64]*domain.CartLine
	order   []int64 // insertion order of lines
	lastErr error

	source  ProductSource
	journal journal.Recorder
	log     *slog.Logger
}

func NewStore(source ProductSource, rec journal.Recorder, log *slog.Logger) *Store {
	return &Store{
		lines:   make(map[int64]*domain.CartLine),
		source:  source,
		journal: rec,
		log:     log,
	}
}

// AddToCart adds one unit of a product. A product already in the cart is
// incremented without a lookup; a new one is looked up first and the cart is
// left unchanged when the lookup fails.
func (s *Store) AddToCart(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return &domain.ValidationError{Field: "product_id", Reason: "product_id must be greater than 0"}
	}

	if s.increment(productID) {
		s.journal.Record(ctx, journal.NewEvent(journal.CartAdded, productID, "incremented"))
		return nil
	}

	entry, err := s.source.Product(ctx, productID)
	if err != nil {
		err = lookupFailure(productID, err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.log.WarnContext(ctx, "failed to add to cart", "product_id", productID, "error", err)
		s.journal.Record(ctx, journal.NewEvent(journal.CartAddFailed, productID, err.Error()))
		return err
	}

	fetched := domain.NewCartLine(entry)
	fetched.ProductID = productID

	s.mu.Lock()
	// a concurrent add may have inserted the line while the lookup ran
	if line, ok := s.lines[productID]; ok {
		line.Quantity++
		line.Title = fetched.Title
		line.UnitPrice = fetched.UnitPrice
		line.Thumbnail = fetched.Thumbnail
	} else {
		s.lines[productID] = &fetched
		s.order = append(s.order, productID)
	}
	s.lastErr = nil
	s.mu.Unlock()

	s.journal.Record(ctx, journal.NewEvent(journal.CartAdded, productID, "inserted"))
	return nil
}

func (s *Store) increment(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[productID]
	if !ok {
		return false
	}
	line.Quantity++
	s.lastErr = nil
	return true
}

// IncreaseQuantity is a no-op for a product not in the cart.
func (s *Store) IncreaseQuantity(productID int64) {
	s.increment(productID)
}

// DecreaseQuantity removes the line instead of keeping it at zero.
func (s *Store) DecreaseQuantity(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[productID]
	if !ok {
		return
	}
	if line.Quantity <= 1 {
		s.removeLocked(productID)
		return
	}
	line.Quantity--
}

func (s *Store) RemoveFromCart(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

func (s *Store) removeLocked(productID int64) {
	if _, ok := s.lines[productID]; !ok {
		return
	}
	delete(s.lines, productID)
	s.order = slices.DeleteFunc(s.order, func(id int64) bool { return id == productID })
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[int64]*domain.CartLine)
	s.order = nil
	s.lastErr = nil
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.lines[id])
	}
	return out
}

func (s *Store) Line(productID int64) (domain.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[productID]
	if !ok {
		return domain.CartLine{}, false
	}
	return *line, true
}

// Total is recomputed from the lines on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, line := range s.lines {
		n += line.Quantity
	}
	return n
}

// LastError is the failure of the most recent add, cleared by the next success.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// lookupFailure keeps the error taxonomy: anything that is not already a
// NotFoundError or FetchError becomes a FetchError.
func lookupFailure(productID int64, err error) error {
	if !domain.IsNotFound(err) && !domain.IsFetchError(err) {
		err = &domain.FetchError{Op: "get product", Err: err}
	}
	return fmt.Errorf("add product %d to cart: %w", productID, err)
}
