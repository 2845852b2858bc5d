package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type categoryCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	data      []domain.Category
	fetchedAt time.Time
	now       func() time.Time
}

func newCategoryCache(ttl time.Duration) *categoryCache {
	return &categoryCache{ttl: ttl, now: time.Now}
}

func (c *categoryCache) get() ([]domain.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return slices.Clone(c.data), true
	}
	return nil, false
}

func (c *categoryCache) set(data []domain.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = slices.Clone(data)
	c.fetchedAt = c.now()
}

// Categories lists the gateway's categories for the filter selector.
func (vm *ViewModel) Categories(ctx context.Context) ([]domain.Category, error) {
	if cats, ok := vm.categories.get(); ok {
		return cats, nil
	}
	cats, err := vm.gateway.Categories(ctx)
	if err != nil {
		vm.log.WarnContext(ctx, "category fetch failed", "error", err)
		return nil, err
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	vm.categories.set(cats)
	return slices.Clone(cats), nil
}
