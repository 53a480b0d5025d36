package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ttkdelivery/ttk-backend/api/routes"
	"github.com/ttkdelivery/ttk-backend/internal/addresses"
	"github.com/ttkdelivery/ttk-backend/internal/cart"
	"github.com/ttkdelivery/ttk-backend/internal/catalog"
	"github.com/ttkdelivery/ttk-backend/internal/cron"
	"github.com/ttkdelivery/ttk-backend/internal/drivers"
	"github.com/ttkdelivery/ttk-backend/internal/notifications"
	"github.com/ttkdelivery/ttk-backend/internal/orders"
	"github.com/ttkdelivery/ttk-backend/internal/regions"
	"github.com/ttkdelivery/ttk-backend/pkg/config"
	"github.com/ttkdelivery/ttk-backend/pkg/db"
	"github.com/ttkdelivery/ttk-backend/pkg/logger"
	"github.com/ttkdelivery/ttk-backend/pkg/migrate"
	"github.com/ttkdelivery/ttk-backend/pkg/outbox"
	"github.com/ttkdelivery/ttk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	regionsService, err := regions.NewService(regions.NewRepository(dbClient.DB()), dbClient, outboxService, cfg.FeatureFlags.RegionBroadcast, logg)
	if err != nil {
		fatal(logg, "failed to create regions service", err)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient, outboxService, logg)
	if err != nil {
		fatal(logg, "failed to create catalog service", err)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, catalogService, logg)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), cartService, cartRepo, dbClient, outboxService, logg)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		fatal(logg, "failed to create notifications service", err)
	}

	addressesService, err := addresses.NewService(addresses.NewRepository(dbClient.DB()), cfg.Delivery.MaxSavedAddresses, logg)
	if err != nil {
		fatal(logg, "failed to create addresses service", err)
	}

	driversService, err := drivers.NewService(regionsService, redisClient, dbClient, outboxService, drivers.Config{
		LocationTTL: cfg.Delivery.DriverLocationTTL,
	}, logg)
	if err != nil {
		fatal(logg, "failed to create drivers service", err)
	}

	driverSweepJob, err := cron.NewDriverLocationSweepJob(cron.DriverLocationSweepJobParams{
		Logger:   logg,
		Drivers:  driversService,
		TTL:      cfg.Delivery.DriverLocationTTL,
		Interval: cfg.Delivery.DriverLocationTTL,
	})
	if err != nil {
		fatal(logg, "failed to create driver location sweep", err)
	}
	driverSweep, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(driverSweepJob),
		Locks:    func(string) (cron.Lock, error) { return cron.NopLock{}, nil },
	})
	if err != nil {
		fatal(logg, "failed to create driver location sweep runner", err)
	}
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		if err := driverSweep.Run(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(sweepCtx, "driver location sweep stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Regions:       regionsService,
			Catalog:       catalogService,
			Cart:          cartService,
			Orders:        ordersService,
			Notifications: notificationsService,
			Addresses:     addressesService,
			Drivers:       driversService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
