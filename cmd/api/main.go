package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/washgeo/internal/api"
	"github.com/nikhilbhutani/washgeo/internal/api/handlers"
	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/audit"
	"github.com/nikhilbhutani/washgeo/internal/cache"
	"github.com/nikhilbhutani/washgeo/internal/config"
	"github.com/nikhilbhutani/washgeo/internal/database"
	"github.com/nikhilbhutani/washgeo/internal/profile"
	"github.com/nikhilbhutani/washgeo/internal/queue"
	"github.com/nikhilbhutani/washgeo/internal/region"
	"github.com/nikhilbhutani/washgeo/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, migrations.FS); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	regions := region.Default()
	slog.Info("region table loaded", "cities", len(regions.Cities()), "talukas", len(regions.AllTalukas()))

	profiles := profile.NewService(db)
	auditSvc := audit.NewService(db)
	opts := []assignment.Option{assignment.WithAuditor(auditSvc)}

	// Redis backs the permission cache and the reconcile queue; both are
	// optional.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	checks := map[string]handlers.Pinger{"database": db}
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache or reconcile queue", "error", err)
	} else {
		checks["redis"] = handlers.RedisPinger{Client: rdb}

		mode, err := assignment.ParseReconcileMode(cfg.Reconcile.Mode)
		if err != nil {
			slog.Error("invalid reconcile mode", "error", err)
			os.Exit(1)
		}

		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()

		opts = append(opts,
			assignment.WithPermissionCache(cache.NewPermissionCache(rdb, cfg.Cache.PermissionTTL)),
			assignment.WithReconcileQueue(qc, mode),
		)
	}

	engine := assignment.NewEngine(assignment.NewPostgresStore(db), profiles, regions, opts...)

	router := api.NewRouter(cfg, engine, profiles, auditSvc, handlers.NewHealthHandler(checks))
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
