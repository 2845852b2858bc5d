package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type memoryEntry struct {
	entry     domain.CatalogEntry
	expiresAt time.Time
}

// MemoryCache is the in-process ProductCache used when no redis is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]memoryEntry),
	}
}

func (m *MemoryCache) Get(_ context.Context, productID int64) (*domain.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[productID]
	if !ok || m.now().After(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	entry := e.entry.Clone()
	return &entry, nil
}

func (m *MemoryCache) Set(_ context.Context, entry *domain.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = memoryEntry{entry: entry.Clone(), expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, productID)
	return nil
}
