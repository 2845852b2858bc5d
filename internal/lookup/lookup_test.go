package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	calls   atomic.Int32
	entry   domain.CatalogEntry
	err     error
	release chan struct{}
}

func (m *mockGateway) GetProduct(ctx context.Context, id int64) (domain.CatalogEntry, error) {
	m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}
	if err := ctx.Err(); err != nil {
		return domain.CatalogEntry{}, err
	}
	if m.err != nil {
		return domain.CatalogEntry{}, m.err
	}
	e := m.entry
	e.ID = id
	return e, nil
}

type mockCache struct {
	m      sync.RWMutex
	stored map[int64]domain.CatalogEntry
	getErr error
}

func newMockCache() *mockCache {
	return &mockCache{stored: make(map[int64]domain.CatalogEntry)}
}

func (c *mockCache) Get(_ context.Context, id int64) (*domain.CatalogEntry, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	e, ok := c.stored[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &e, nil
}

func (c *mockCache) Set(_ context.Context, e *domain.CatalogEntry) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.stored[e.ID] = *e
	return nil
}

func (c *mockCache) Delete(_ context.Context, id int64) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.stored, id)
	return nil
}

func (c *mockCache) get(id int64) domain.CatalogEntry {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.stored[id]
}

func (c *mockCache) has(id int64) bool {
	c.m.RLock()
	defer c.m.RUnlock()
	_, ok := c.stored[id]
	return ok
}

func TestProduct_CacheMissFetchesAndFills(t *testing.T) {
	gw := &mockGateway{entry: domain.CatalogEntry{Title: "Phone", Price: 500}}
	c := newMockCache()
	sut := NewProducts(gw, c, logger.Discard())

	e, err := sut.Product(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "Phone", e.Title)
	assert.Equal(t, int32(1), gw.calls.Load())
	require.Eventually(t, func() bool {
		return c.has(1)
	}, 100*time.Millisecond, 10*time.Millisecond, "entry was not set in cache")
}

func TestProduct_CacheHitSkipsGateway(t *testing.T) {
	gw := &mockGateway{}
	c := newMockCache()
	c.stored[3] = domain.CatalogEntry{ID: 3, Title: "Cached"}
	sut := NewProducts(gw, c, logger.Discard())

	e, err := sut.Product(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, "Cached", e.Title)
	assert.Zero(t, gw.calls.Load())
}

func TestProduct_CacheErrorFallsBackToGateway(t *testing.T) {
	gw := &mockGateway{entry: domain.CatalogEntry{Title: "Fresh"}}
	c := newMockCache()
	c.getErr = errors.New("redis down")
	sut := NewProducts(gw, c, logger.Discard())

	e, err := sut.Product(context.Background(), 4)

	require.NoError(t, err)
	assert.Equal(t, "Fresh", e.Title)
}

func TestProduct_GatewayErrorIsReturned(t *testing.T) {
	gw := &mockGateway{err: &domain.NotFoundError{Kind: "product", ID: 8}}
	c := newMockCache()
	sut := NewProducts(gw, c, logger.Discard())

	_, err := sut.Product(context.Background(), 8)

	assert.True(t, domain.IsNotFound(err))
	assert.False(t, c.has(8))
}

func TestProduct_ConcurrentLookupsShareOneCall(t *testing.T) {
	gw := &mockGateway{entry: domain.CatalogEntry{Title: "Phone"}, release: make(chan struct{})}
	sut := NewProducts(gw, newMockCache(), logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sut.Product(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return gw.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gw.release)
	wg.Wait()

	assert.Equal(t, int32(1), gw.calls.Load())
}

func TestStoreAndForget(t *testing.T) {
	c := newMockCache()
	sut := NewProducts(&mockGateway{}, c, logger.Discard())

	sut.Store(context.Background(), domain.CatalogEntry{ID: 6, Title: "Lamp"})
	assert.True(t, c.has(6))

	sut.Forget(context.Background(), 6)
	assert.False(t, c.has(6))
}

func TestProduct_StoreDuringFetchWins(t *testing.T) {
	gw := &mockGateway{entry: domain.CatalogEntry{Title: "Phone", Price: 549}, release: make(chan struct{})}
	c := newMockCache()
	sut := NewProducts(gw, c, logger.Discard())

	done := make(chan domain.CatalogEntry, 1)
	go func() {
		e, err := sut.Product(context.Background(), 1)
		assert.NoError(t, err)
		done <- e
	}()
	require.Eventually(t, func() bool { return gw.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	sut.Store(context.Background(), domain.CatalogEntry{ID: 1, Title: "Phone", Price: 600})
	close(gw.release)

	e := <-done
	assert.Equal(t, 600.0, e.Price, "in-flight lookup returns the newer local copy")
	assert.Equal(t, 600.0, c.get(1).Price, "gateway copy must not overwrite the stored entry")

	again, err := sut.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 600.0, again.Price)
	assert.Equal(t, int32(1), gw.calls.Load())
}

func TestProduct_ForgetDuringFetchSkipsFill(t *testing.T) {
	gw := &mockGateway{entry: domain.CatalogEntry{Title: "Phone"}, release: make(chan struct{})}
	c := newMockCache()
	sut := NewProducts(gw, c, logger.Discard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := sut.Product(context.Background(), 1)
		assert.NoError(t, err)
	}()
	require.Eventually(t, func() bool { return gw.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	sut.Forget(context.Background(), 1)
	close(gw.release)
	<-done

	assert.False(t, c.has(1))
}

func TestProduct_CancelledCallerDoesNotFailOthers(t *testing.T) {
	gw := &mockGateway{entry: domain.CatalogEntry{Title: "Phone"}, release: make(chan struct{})}
	sut := NewProducts(gw, newMockCache(), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := sut.Product(ctx, 1)
		first <- err
	}()
	require.Eventually(t, func() bool { return gw.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := sut.Product(context.Background(), 1)
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(gw.release)
	assert.NoError(t, <-second)
}
