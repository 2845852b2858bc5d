package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Gateway is the part of the remote catalog the lookup needs.
type Gateway interface {
	GetProduct(ctx context.Context, id int64) (domain.CatalogEntry, error)
}

// Products resolves catalog entry details cache-aside. Concurrent lookups for
// the same id share one gateway call.
type Products struct {
	gateway Gateway
	cache   cache.ProductCache
	sfg     singleflight.Group
	log     *slog.Logger
	// callTimeout bounds a shared gateway call and its cache fill.
	callTimeout time.Duration

	// mu orders cache writes per id. A fill is dropped when Store or Forget
	// ran for the same id after the fill's lookup began.
	mu       sync.Mutex
	versions map[int64]uint64
}

func NewProducts(gateway Gateway, c cache.ProductCache, log *slog.Logger) *Products {
	return &Products{
		gateway:     gateway,
		cache:       c,
		log:         log,
		callTimeout: 10 * time.Second,
		versions:    make(map[int64]uint64),
	}
}

// Product returns the entry for id. A caller whose ctx ends stops waiting, but
// the shared call keeps running for the other callers.
func (p *Products) Product(ctx context.Context, id int64) (domain.CatalogEntry, error) {
	ch := p.sfg.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.callTimeout)
		defer cancel()
		return p.load(flightCtx, id)
	})

	select {
	case <-ctx.Done():
		return domain.CatalogEntry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.CatalogEntry{}, res.Err
		}
		return res.Val.(domain.CatalogEntry).Clone(), nil
	}
}

func (p *Products) load(ctx context.Context, id int64) (domain.CatalogEntry, error) {
	version := p.version(id)

	entry, err := p.cache.Get(ctx, id)
	if err == nil {
		return *entry, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		p.log.WarnContext(ctx, "cache get error", "product_id", id, "error", err)
	}

	fetched, err := p.gateway.GetProduct(ctx, id)
	if err != nil {
		return domain.CatalogEntry{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.versions[id] != version {
		// a local write landed during the fetch and is newer than the gateway copy
		if stored, err := p.cache.Get(ctx, id); err == nil {
			return *stored, nil
		}
		return fetched, nil
	}
	if err := p.cache.Set(ctx, &fetched); err != nil {
		p.log.WarnContext(ctx, "cache set error", "product_id", id, "error", err)
	}
	return fetched, nil
}

func (p *Products) version(id int64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.versions[id]
}

// Store primes the cache with an entry the caller already holds, such as a
// freshly loaded listing or a locally saved edit.
func (p *Products) Store(ctx context.Context, e domain.CatalogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions[e.ID]++
	if err := p.cache.Set(ctx, &e); err != nil {
		p.log.WarnContext(ctx, "cache set error", "product_id", e.ID, "error", err)
	}
}

// Forget drops a cached entry, for example after a delete.
func (p *Products) Forget(ctx context.Context, id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.versions[id]++
	if err := p.cache.Delete(ctx, id); err != nil {
		p.log.WarnContext(ctx, "cache invalidate error", "product_id", id, "error", err)
	}
}
