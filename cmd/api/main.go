package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/pieshop-backend/api/routes"
	"github.com/angelmondragon/pieshop-backend/internal/admins"
	"github.com/angelmondragon/pieshop-backend/internal/cart"
	"github.com/angelmondragon/pieshop-backend/internal/catalog"
	"github.com/angelmondragon/pieshop-backend/internal/chat"
	"github.com/angelmondragon/pieshop-backend/internal/delivery"
	"github.com/angelmondragon/pieshop-backend/internal/feedback"
	"github.com/angelmondragon/pieshop-backend/internal/locks"
	"github.com/angelmondragon/pieshop-backend/internal/orders"
	"github.com/angelmondragon/pieshop-backend/internal/sessions"
	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/db"
	"github.com/angelmondragon/pieshop-backend/pkg/instance"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/metrics"
	"github.com/angelmondragon/pieshop-backend/pkg/migrate"
	"github.com/angelmondragon/pieshop-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	locker, err := locks.New(cfg.Locks, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create locker", err)
		os.Exit(1)
	}

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	conn := dbClient.DB()
	itemRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)

	catalogService, err := catalog.NewService(itemRepo)
	requireService(logg, "catalog", err)

	cartService, err := cart.NewService(cartRepo, itemRepo, locker, logg)
	requireService(logg, "cart", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Tx:            dbClient,
		Repo:          orders.NewRepository(conn),
		Cart:          cartRepo,
		Locker:        locker,
		Logger:        logg,
		Metrics:       orderMetrics,
		DeliveryDelay: cfg.Delivery.Delay,
	})
	requireService(logg, "orders", err)

	notifier, err := delivery.NewNotifier(cfg.Delivery.Notifier, delivery.NotifierDeps{
		Logger: logg,
		Redis:  redisClient,
		Kafka:  cfg.Kafka,
	})
	requireService(logg, "delivery notifier", err)

	scheduler, err := delivery.NewScheduler(delivery.SchedulerParams{
		Notifier: notifier,
		Logger:   logg,
		Metrics:  orderMetrics,
	})
	requireService(logg, "delivery scheduler", err)

	sessionStore, err := sessions.NewStore(redisClient, cfg.Sessions.TTL)
	requireService(logg, "sessions", err)

	feedbackService, err := feedback.NewService(conn, logg)
	requireService(logg, "feedback", err)

	adminService, err := admins.NewService(admins.NewRepository(conn))
	requireService(logg, "admins", err)

	dispatcher, err := chat.NewDispatcher(chat.DispatcherParams{
		Catalog:        catalogService,
		Cart:           cartService,
		Orders:         ordersService,
		Delivery:       scheduler,
		Admins:         adminService,
		Sessions:       sessionStore,
		Feedback:       feedbackService,
		Idempotency:    redisClient,
		IdempotencyTTL: cfg.Events.IdempotencyTTL,
		Logger:         logg,
	})
	requireService(logg, "chat dispatcher", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"notifier": notifier.Name(),
		"locks":    cfg.Locks.Backend,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, dispatcher, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		dropped, schedErr := scheduler.Shutdown(shutdownCtx)
		if dropped > 0 {
			logg.Warn(logg.WithField(ctx, "dropped", dropped), "pending delivery notices dropped on shutdown")
		}
		return multierr.Combine(err, schedErr)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(context.Background(), "service", name), "failed to create service", err)
	os.Exit(1)
}
