package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/internal/cron"
	"github.com/angelmondragon/pieshop-backend/internal/promotions"
	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/db"
	"github.com/angelmondragon/pieshop-backend/pkg/instance"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/metrics"
	"github.com/angelmondragon/pieshop-backend/pkg/migrate"
	"github.com/angelmondragon/pieshop-backend/pkg/redis"
)

const lockKeyFormat = "pf:cron-worker:lock:%s"

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

	discount, err := config.ParseDiscount(cfg.Promotion.Discount)
	if err != nil {
		logg.Error(context.Background(), "invalid promotion discount", err)
		os.Exit(1)
	}

	rotator, err := promotions.NewRotator(promotions.RotatorParams{
		Tx:       dbClient,
		Catalog:  catalog.NewRepository(dbClient.DB()),
		Picker:   promotions.NewRandomPicker(),
		Discount: discount,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create promotion rotator", err)
		os.Exit(1)
	}
	promotionJob, err := cron.NewPromotionJob(rotator)
	if err != nil {
		logg.Error(context.Background(), "failed to create promotion job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Promotion.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(promotionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:       logg,
		Registry:     registry,
		Lock:         lock,
		Metrics:      metricsCollector,
		Interval:     cfg.Promotion.Interval,
		RetryBackoff: cfg.Promotion.RetryBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"serviceKind":   cfg.Service.Kind,
		"interval":      cfg.Promotion.Interval.String(),
		"retry_backoff": cfg.Promotion.RetryBackoff.String(),
		"discount":      discount.String(),
		"instance":      instance.ID(),
		"jobs":          registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
