package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/audit"
	"github.com/nikhilbhutani/washgeo/internal/cache"
	"github.com/nikhilbhutani/washgeo/internal/config"
	"github.com/nikhilbhutani/washgeo/internal/database"
	"github.com/nikhilbhutani/washgeo/internal/profile"
	"github.com/nikhilbhutani/washgeo/internal/queue"
	"github.com/nikhilbhutani/washgeo/internal/queue/workers"
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

	mode, err := assignment.ParseReconcileMode(cfg.Reconcile.Mode)
	if err != nil {
		slog.Error("invalid reconcile mode", "error", err)
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// No reconcile queue here: prunes must not enqueue further passes.
	engine := assignment.NewEngine(
		assignment.NewPostgresStore(db),
		profile.NewService(db),
		region.Default(),
		assignment.WithAuditor(audit.NewService(db)),
		assignment.WithPermissionCache(cache.NewPermissionCache(rdb, cfg.Cache.PermissionTTL)),
	)

	redisOpt := queue.RedisOpt(cfg.Redis)
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Reconcile.Concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeAssignmentReconcile, workers.NewReconcileWorker(engine, mode))

	var scheduler *asynq.Scheduler
	if cfg.Reconcile.Cron != "" {
		scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
		task, err := queue.NewReconcileTask("")
		if err != nil {
			slog.Error("build reconcile task", "error", err)
			os.Exit(1)
		}
		entryID, err := scheduler.Register(cfg.Reconcile.Cron, task)
		if err != nil {
			slog.Error("register reconcile schedule", "cron", cfg.Reconcile.Cron, "error", err)
			os.Exit(1)
		}
		if err := scheduler.Start(); err != nil {
			slog.Error("scheduler error", "error", err)
			os.Exit(1)
		}
		slog.Info("reconcile scheduled", "cron", cfg.Reconcile.Cron, "mode", mode, "entry_id", entryID)
	}

	if err := srv.Start(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
	slog.Info("starting worker", "concurrency", cfg.Reconcile.Concurrency, "mode", mode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	if scheduler != nil {
		scheduler.Shutdown()
	}
	srv.Shutdown()
	slog.Info("worker stopped")
}
