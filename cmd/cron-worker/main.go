package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ttkdelivery/ttk-backend/internal/cart"
	"github.com/ttkdelivery/ttk-backend/internal/catalog"
	"github.com/ttkdelivery/ttk-backend/internal/cron"
	"github.com/ttkdelivery/ttk-backend/internal/notifications"
	"github.com/ttkdelivery/ttk-backend/pkg/config"
	"github.com/ttkdelivery/ttk-backend/pkg/db"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/metrics"
	"github.com/ttkdelivery/ttk-backend/pkg/migrate"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
	"github.com/ttkdelivery/ttk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient, outboxService, logg)
	if err != nil {
		fatal(logg, "failed to create catalog service", err)
	}
	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), catalogService, logg)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}
	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		fatal(logg, "failed to create notifications service", err)
	}

	fireSaleJob, err := cron.NewFireSaleSweepJob(cron.FireSaleSweepJobParams{
		Logger:   logg,
		Catalog:  catalogService,
		Interval: cfg.Cron.FireSaleSweepInterval,
	})
	if err != nil {
		fatal(logg, "failed to create fire sale sweep", err)
	}
	muteJob, err := cron.NewMuteCleanupJob(cron.MuteCleanupJobParams{
		Logger:        logg,
		Notifications: notificationsService,
		Interval:      cfg.Cron.MuteCleanupInterval,
	})
	if err != nil {
		fatal(logg, "failed to create mute cleanup", err)
	}
	cartJob, err := cron.NewStaleCartSweepJob(cron.StaleCartSweepJobParams{
		Logger:   logg,
		Carts:    cartService,
		TTL:      cfg.Cron.StaleCartTTL,
		Interval: cfg.Cron.StaleCartSweepInterval,
	})
	if err != nil {
		fatal(logg, "failed to create stale cart sweep", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(fireSaleJob, muteJob, cartJob),
		Locks: func(jobName string) (cron.Lock, error) {
			return cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+jobName), cfg.Cron.LockTTL)
		},
		Metrics: metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		fatal(logg, "failed to create cron service", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
