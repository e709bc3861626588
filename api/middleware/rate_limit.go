package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/pieshop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

const (
	rateLimitWindow  = time.Minute
	maxInspectedBody = 1 << 20
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// EventRateLimit throttles event ingress per chat user, falling back to the
// client IP when the body carries no user id. A limit of zero disables it.
func EventRateLimit(perMinute int, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(io.LimitReader(r.Body, maxInspectedBody+1))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			if len(body) > maxInspectedBody {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scope := "events:ip:" + clientIP(r)
			if userID := extractUserID(body); userID > 0 {
				scope = fmt.Sprintf("events:user:%d", userID)
			}

			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(perMinute), rateLimitWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"scope":    scope,
						"attempts": count,
						"limit":    perMinute,
					}), "events.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractUserID(payload []byte) int64 {
	var body struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return 0
	}
	return body.UserID
}
