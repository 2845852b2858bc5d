package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/session"
)

type SessionService interface {
	Login(ctx context.Context, username, password string, remember bool) (session.User, error)
	User() (session.User, bool)
	Logout() error
}

type SessionHandler struct {
	session SessionService
	timeout time.Duration
	maxBody int64
	log     *slog.Logger
}

func NewSessionHandler(s SessionService, timeout time.Duration, maxBody int64, log *slog.Logger) *SessionHandler {
	return &SessionHandler{
		session: s,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

type LoginRequestDTO struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *session.User `json:"user,omitempty"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := h.session.Login(ctx, req.Username, req.Password, req.RememberMe)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{Authenticated: true, User: &user})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.session.User()
	if !ok {
		respondJSON(w, http.StatusOK, SessionResponse{})
		return
	}
	respondJSON(w, http.StatusOK, SessionResponse{Authenticated: true, User: &user})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(); err != nil {
		h.log.WarnContext(r.Context(), "logout failed to clear stored token", "error", err)
	}
	respondJSON(w, http.StatusOK, SessionResponse{})
}
