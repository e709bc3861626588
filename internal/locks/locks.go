package locks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
	"github.com/angelmondragon/pieshop-backend/pkg/redis"
)

const (
	BackendLocal = "local"
	BackendRedis = "redis"
)

// Unlock releases a held lock. Calling it more than once is a no-op.
type Unlock func()

// Locker serializes work per key. Lock blocks until the key is free, the
// context is done, or the configured wait elapses.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// UserKey builds the lock key that guards a user's cart and checkout.
func UserKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// New picks the lock backend named in config. The redis client may be nil
// when the local backend is selected.
func New(cfg config.LocksConfig, rdb *redis.Client, logg *logger.Logger) (Locker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		return NewLocal(cfg.Wait), nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis lock backend requires a redis client")
		}
		return NewRedis(rdb, RedisOptions{TTL: cfg.TTL, Wait: cfg.Wait, Logger: logg}), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

func waitContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}
