package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/editbuf"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps component errors onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var (
		ve *domain.ValidationError
		nf *domain.NotFoundError
		fe *domain.FetchError
	)
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ve.Reason, Code: "validation_failed", Details: ve.Field})
	case errors.As(err, &nf):
		respondError(w, http.StatusNotFound, "not_found", nf.Error())
	case errors.Is(err, session.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, catalog.ErrSuperseded):
		respondError(w, http.StatusConflict, "superseded", err.Error())
	case errors.Is(err, editbuf.ErrNotOpen), errors.Is(err, editbuf.ErrAlreadyOpen):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &fe) && fe.Retryable():
		log.WarnContext(r.Context(), "gateway unavailable", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "catalog gateway unavailable, try again", Code: "gateway_unavailable", Details: err.Error()})
	case errors.As(err, &fe):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "catalog gateway rejected the request", Code: "gateway_error", Details: err.Error()})
	default:
		log.ErrorContext(r.Context(), "request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) bool {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
