// Package main is the entry point for the weekend poll API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/pkordes/weekend-poll/internal/config"
	"github.com/pkordes/weekend-poll/internal/handler"
	"github.com/pkordes/weekend-poll/internal/middleware"
	"github.com/pkordes/weekend-poll/internal/repo"
	"github.com/pkordes/weekend-poll/internal/service"
	"github.com/pkordes/weekend-poll/internal/token"
	"github.com/pkordes/weekend-poll/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ----------------------------------------------------------
	polls, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS.
	// The /api group additionally gets the body size limit and the rate limiter.
	limiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	go limiter.Run(ctx)

	svc := service.NewPollService(polls, token.NewGenerator(), cfg.BaseURL)
	api := handler.NewRouter(handler.NewServer(svc, logger),
		limiter.Handler,
		middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Mount("/", api)

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore returns the PollRepo selected by cfg.Storage and a function that
// releases it. For Postgres it verifies the connection and applies pending
// migrations before returning.
func openStore(ctx context.Context, cfg config.Config) (repo.PollRepo, func(), error) {
	if cfg.Storage == config.StorageMemory {
		slog.Warn("using in-memory storage; polls are lost on restart")
		return repo.NewMemoryPollRepo(), func() {}, nil
	}

	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("database connection established")

	// goose needs database/sql; borrow a handle backed by the same pool.
	db := stdlib.OpenDBFromPool(pool)
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		pool.Close()
		return nil, nil, err
	}

	return repo.NewPollRepo(pool), func() {
		db.Close()
		pool.Close()
	}, nil
}
