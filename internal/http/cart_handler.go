package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type CartService interface {
	AddToCart(ctx context.Context, productID int64) error
	IncreaseQuantity(productID int64)
	DecreaseQuantity(productID int64)
	RemoveFromCart(productID int64)
	Clear()
	Lines() []domain.CartLine
	Total() decimal.Decimal
	Count() int
	LastError() error
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
	maxBody int64
	log     *slog.Logger
}

func NewCartHandler(cart CartService, timeout time.Duration, maxBody int64, log *slog.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type CartResponse struct {
	Items []domain.CartLine `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Count int               `json:"count"`
	// LastError is the most recent failed add, shown as a banner.
	LastError string `json:"last_error,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_id must be positive")
		return
	}

	if err := h.cart.AddToCart(ctx, req.ProductID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.snapshot())
}

func (h *CartHandler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	h.cart.IncreaseQuantity(productID)
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	h.cart.DecreaseQuantity(productID)
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	h.cart.RemoveFromCart(productID)
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *CartHandler) snapshot() CartResponse {
	resp := CartResponse{
		Items: h.cart.Lines(),
		Total: h.cart.Total(),
		Count: h.cart.Count(),
	}
	if err := h.cart.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return resp
}
