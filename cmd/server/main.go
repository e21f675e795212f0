// cmd/server is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/cache"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/config"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/database"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/handler"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/logging"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/notify"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository/memstore"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/roster"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// ── 1. Open the store ─────────────────────────────────────────────────
	var (
		store service.Store
		db    handler.Pinger
	)
	switch cfg.Store {
	case "memory":
		store = memstore.New()
		logger.Warn("using in-memory store, data is lost on exit")
	default:
		pool, err := database.NewPool(ctx, cfg.DB, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))
		store = repository.New(pool)
		db = pool
	}

	// ── 2. Collaborators ──────────────────────────────────────────────────
	dir, err := roster.Load(cfg.Roster)
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}

	opts := service.Options{
		Log:       logger,
		Location:  cfg.Location(),
		Directory: dir,
	}
	if reports := cache.Connect(cfg.Redis, logger); reports != nil {
		defer func() { _ = reports.Close() }()
		opts.Cache = reports
		logger.Info("report cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}
	if cfg.Notify.Enabled {
		pub := notify.NewAMQPPublisher(cfg.Notify.URL, cfg.Notify.Queue, logger)
		defer func() { _ = pub.Close() }()
		opts.Publisher = pub
		logger.Info("notifications enabled", zap.String("queue", cfg.Notify.Queue))
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	svc := service.New(store, opts)
	h := handler.New(svc, db, logger)
	router := handler.Router(h, auth.NewVerifier(cfg.JWTSecret), logger)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
