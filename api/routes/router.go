package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pieshop-backend/api/controllers"
	"github.com/angelmondragon/pieshop-backend/api/middleware"
	"github.com/angelmondragon/pieshop-backend/internal/chat"
	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/db"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

type eventDispatcher interface {
	Handle(ctx context.Context, ev chat.Event) (chat.Result, error)
}

// RedisDeps is the slice of the Redis client the HTTP surface needs.
type RedisDeps interface {
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient RedisDeps,
	dispatcher eventDispatcher,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	ready := map[string]controllers.Pinger{}
	if dbP != nil {
		ready["db"] = dbP
	}
	if redisClient != nil {
		ready["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		var limiter func(http.Handler) http.Handler = func(next http.Handler) http.Handler { return next }
		if redisClient != nil {
			limiter = middleware.EventRateLimit(cfg.Events.RateLimitPerMinute, redisClient, logg)
		}
		r.With(limiter).Post("/events", controllers.PostEvent(dispatcher, logg))
	})

	return r
}
