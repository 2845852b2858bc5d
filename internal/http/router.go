package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Cart     *CartHandler
	Products *ProductHandler
	Edit     *EditHandler
	Session  *SessionHandler
}

// NewRouter mounts the local API. Catalog writes require a signed-in session.
func NewRouter(hs Handlers, auth Authenticator, log *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", hs.Products.List)
			r.Post("/refresh", hs.Products.Refresh)
			r.Get("/{id}", hs.Products.Get)

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth(auth))
				r.Post("/", hs.Products.Create)
				r.Delete("/{id}", hs.Products.Delete)
				r.Post("/{id}/edit", hs.Edit.Begin)
			})
		})
		r.Get("/categories", hs.Products.Categories)
		r.Put("/filter/category", hs.Products.SetCategory)
		r.Put("/filter/search", hs.Products.SetSearch)

		r.Route("/edit", func(r chi.Router) {
			r.Get("/", hs.Edit.Get)
			r.Group(func(r chi.Router) {
				r.Use(RequireAuth(auth))
				r.Patch("/", hs.Edit.Update)
				r.Post("/commit", hs.Edit.Commit)
				r.Delete("/", hs.Edit.Cancel)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", hs.Cart.GetCart)
			r.Post("/items", hs.Cart.AddItem)
			r.Post("/items/{product_id}/increase", hs.Cart.IncreaseQuantity)
			r.Post("/items/{product_id}/decrease", hs.Cart.DecreaseQuantity)
			r.Delete("/items/{product_id}", hs.Cart.RemoveItem)
			r.Delete("/", hs.Cart.ClearCart)
		})

		r.Route("/session", func(r chi.Router) {
			r.Post("/login", hs.Session.Login)
			r.Get("/", hs.Session.Get)
			r.Delete("/", hs.Session.Logout)
		})
	})

	return r
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
