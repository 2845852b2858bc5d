package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/editbuf"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/lookup"
	"github.com/fjod/go_cart/storefront/internal/session"
)

func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	productCache, closeCache := newProductCache(cfg, log)
	defer closeCache()

	rec, closeJournal := newJournal(cfg, log)
	defer closeJournal()

	var sess *session.Session
	client := gateway.New(gateway.Options{
		BaseURL:     cfg.GatewayBaseURL,
		ListLimit:   cfg.GatewayListLimit,
		Timeout:     cfg.RequestTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
		Token:       func() string { return sess.Token() },
		Logger:      log,
	})

	products := lookup.NewProducts(client, productCache, log)
	vm := catalog.NewViewModel(client, products, rec, log, catalog.Options{
		CategoryTTL:      cfg.CategoryTTL,
		ReconcileTimeout: cfg.RequestTimeout,
	})
	store := cart.NewStore(products, rec, log)
	buf := editbuf.New(vm, rec, log)

	sess = session.New(client, newTokenStore(cfg, log), log)
	if err := sess.Restore(); err != nil {
		log.Warn("failed to restore session", "error", err)
	}

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(store, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Products: h.NewProductHandler(vm, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Edit:     h.NewEditHandler(buf, vm, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
		Session:  h.NewSessionHandler(sess, cfg.RequestTimeout, cfg.MaxRequestBodySize, log),
	}, sess, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort, "gateway", cfg.GatewayBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// initial listing, so the first page view is served from memory
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if err := vm.Refresh(ctx); err != nil && !errors.Is(err, catalog.ErrSuperseded) {
			log.Warn("initial listing load failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	vm.Close()
	log.Info("server exited")
}

// newProductCache uses redis when REDIS_URL is set and reachable, and an
// in-process cache otherwise.
func newProductCache(cfg *config.Config, log *slog.Logger) (cache.ProductCache, func()) {
	memory := cache.NewMemoryCache(cfg.CacheTTL)
	if cfg.RedisURL == "" {
		return memory, func() {}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-memory cache", "error", err)
		return memory, func() {}
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, using in-memory cache", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return memory, func() {}
	}
	log.Info("redis ping succeeded", "addr", opts.Addr)
	return cache.NewRedisCache(client, cfg.CacheTTL), func() { _ = client.Close() }
}

func newJournal(cfg *config.Config, log *slog.Logger) (journal.Recorder, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return journal.NewLogRecorder(log), func() {}
	}
	rec := journal.NewKafkaRecorder(cfg.JournalTopic, log, cfg.KafkaBrokers...)
	log.Info("publishing journal to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.JournalTopic)
	return rec, func() {
		if err := rec.Close(); err != nil {
			log.Warn("failed to close journal writer", "error", err)
		}
	}
}

func newTokenStore(cfg *config.Config, log *slog.Logger) session.TokenStore {
	path := cfg.TokenFile
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			log.Warn("no config dir, remember-me lasts for this run only", "error", err)
			return session.NewMemoryStore()
		}
		path = filepath.Join(dir, "storefront", "token")
	}
	return session.NewFileStore(path)
}
