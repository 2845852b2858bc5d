package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ProductCache holds catalog entry details by product id.
type ProductCache interface {
	Get(ctx context.Context, productID int64) (*domain.CatalogEntry, error)
	Set(ctx context.Context, entry *domain.CatalogEntry) error
	Delete(ctx context.Context, productID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
