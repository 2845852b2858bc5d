package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Catalog interface {
	State() catalog.State
	SetCategoryFilter(ctx context.Context, category string) error
	SetSearchTerm(term string)
	Refresh(ctx context.Context) error
	Entry(ctx context.Context, id int64) (domain.CatalogEntry, error)
	CreateEntry(ctx context.Context, draft domain.CatalogEntry) (domain.CatalogEntry, error)
	DeleteEntry(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]domain.Category, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
	maxBody int64
	log     *slog.Logger
}

func NewProductHandler(c Catalog, timeout time.Duration, maxBody int64, log *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: c,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

type CategoryFilterDTO struct {
	Category string `json:"category"`
}

type SearchDTO struct {
	Term string `json:"term"`
}

type CategoriesResponse struct {
	Categories []domain.Category `json:"categories"`
}

// List returns the visible listing, loading it on first use.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog.State().Status == catalog.StatusIdle {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.catalog.Refresh(ctx); err != nil && !domain.IsFetchError(err) {
			handleError(w, r, h.log, err)
			return
		}
	}
	// fetch failures are part of the listing state
	respondJSON(w, http.StatusOK, h.catalog.State())
}

func (h *ProductHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.catalog.Refresh(ctx); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.State())
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entry, err := h.catalog.Entry(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft domain.CatalogEntry
	if !decodeJSON(w, r, h.maxBody, &draft) {
		return
	}
	draft.ID = 0

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	created, err := h.catalog.CreateEntry(ctx, draft)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.DeleteEntry(ctx, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.State())
}

func (h *ProductHandler) SetCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryFilterDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.SetCategoryFilter(ctx, req.Category); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.catalog.State())
}

func (h *ProductHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	h.catalog.SetSearchTerm(req.Term)
	respondJSON(w, http.StatusOK, h.catalog.State())
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}
