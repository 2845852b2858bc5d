package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/editbuf"
)

type Editor interface {
	Begin(entry domain.CatalogEntry) error
	Update(field, value string) error
	Commit(ctx context.Context) error
	Cancel() error
	Snapshot() editbuf.Snapshot
}

// EntrySource finds the entry an edit starts from.
type EntrySource interface {
	Entry(ctx context.Context, id int64) (domain.CatalogEntry, error)
}

type EditHandler struct {
	editor  Editor
	entries EntrySource
	timeout time.Duration
	maxBody int64
	log     *slog.Logger
}

func NewEditHandler(editor Editor, entries EntrySource, timeout time.Duration, maxBody int64, log *slog.Logger) *EditHandler {
	return &EditHandler{
		editor:  editor,
		entries: entries,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

// UpdateFieldDTO carries one form field. Value may be a JSON string or a
// bare number; both reach the buffer as text.
type UpdateFieldDTO struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func (d UpdateFieldDTO) text() string {
	var s string
	if err := json.Unmarshal(d.Value, &s); err == nil {
		return s
	}
	raw := strings.TrimSpace(string(d.Value))
	if raw == "null" {
		return ""
	}
	return raw
}

func (h *EditHandler) Begin(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entry, err := h.entries.Entry(ctx, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if err := h.editor.Begin(entry); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.editor.Snapshot())
}

func (h *EditHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.editor.Snapshot())
}

func (h *EditHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateFieldDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.Field == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "field is required")
		return
	}
	if err := h.editor.Update(req.Field, req.text()); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.editor.Snapshot())
}

func (h *EditHandler) Commit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.editor.Commit(ctx); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.editor.Snapshot())
}

func (h *EditHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Cancel(); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, h.editor.Snapshot())
}
