package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator exchanges credentials for a gateway token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (gateway.LoginResponse, error)
}

type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Image     string     `json:"image,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Session is the signed-in identity of the browsing session.
type Session struct {
	auth  Authenticator
	store TokenStore
	log   *slog.Logger
	now   func() time.Time

	mu    sync.RWMutex
	user  *User
	token string
}

func New(auth Authenticator, store TokenStore, log *slog.Logger) *Session {
	return &Session{auth: auth, store: store, log: log, now: time.Now}
}

// Login signs in against the gateway. With remember set the token is
// persisted for Restore; otherwise any persisted token is dropped.
func (s *Session) Login(ctx context.Context, username, password string, remember bool) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return User{}, &domain.ValidationError{Field: "username", Reason: "please enter a valid username"}
	}

	resp, err := s.auth.Login(ctx, username, password)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) && (fe.StatusCode == http.StatusBadRequest || fe.StatusCode == http.StatusUnauthorized) {
			return User{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return User{}, fmt.Errorf("login: %w", err)
	}
	token := resp.BearerToken()
	if token == "" {
		return User{}, &domain.FetchError{Op: "login", Err: errors.New("gateway returned no token")}
	}

	user := User{
		ID:        resp.ID,
		Username:  resp.Username,
		Email:     resp.Email,
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
		Image:     resp.Image,
	}
	if c, ok := parseClaims(token); ok && c.ExpiresAt != nil {
		exp := c.ExpiresAt.Time
		user.ExpiresAt = &exp
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()

	if remember {
		err = s.store.Save(token)
	} else {
		err = s.store.Clear()
	}
	if err != nil {
		s.log.WarnContext(ctx, "token store update failed", "remember", remember, "error", err)
	}
	s.log.InfoContext(ctx, "user logged in", "username", user.Username, "remember", remember)
	return user, nil
}

// Restore reloads a remembered token. An expired token is discarded.
func (s *Session) Restore() error {
	token, err := s.store.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	user := User{}
	if c, ok := parseClaims(token); ok {
		user = User{
			ID:        c.UserID,
			Username:  c.Username,
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Image:     c.Image,
		}
		if c.ExpiresAt != nil {
			exp := c.ExpiresAt.Time
			if !s.now().Before(exp) {
				s.log.Info("remembered token expired", "expired_at", exp)
				return s.store.Clear()
			}
			user.ExpiresAt = &exp
		}
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()
	s.log.Info("session restored", "username", user.Username)
	return nil
}

func (s *Session) Logout() error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()
	return s.store.Clear()
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid()
}

// User returns the signed-in user while the token is valid.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.valid() {
		return User{}, false
	}
	return *s.user, true
}

// Token is the bearer token forwarded to the gateway, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.valid() {
		return ""
	}
	return s.token
}

// valid requires mu.
func (s *Session) valid() bool {
	if s.user == nil {
		return false
	}
	return s.user.ExpiresAt == nil || s.now().Before(*s.user.ExpiresAt)
}

type tokenClaims struct {
	UserID    int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Image     string `json:"image"`
	jwt.RegisteredClaims
}

// parseClaims reads the token payload without verifying it; the gateway
// signs its tokens and is the one that checks them.
func parseClaims(token string) (*tokenClaims, bool) {
	c := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, false
	}
	return c, true
}
