package http

import (
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/google/uuid"
)

// Authenticator reports whether write routes may be used.
type Authenticator interface {
	Authenticated() bool
}

// RequireAuth rejects requests while no user is signed in.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Authenticated() {
				respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to change the catalog")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
