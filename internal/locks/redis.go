package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

const (
	defaultRedisTTL   = 10 * time.Second
	defaultRetryEvery = 25 * time.Millisecond
	releaseTimeout    = 2 * time.Second
	lockScope         = "cart"
)

// redisStore defines the operations used by Redis.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	LockKey(scope, id string) string
}

// RedisOptions tune the distributed lock.
type RedisOptions struct {
	TTL        time.Duration
	Wait       time.Duration
	RetryEvery time.Duration
	Logger     *logger.Logger
}

// Redis is a SETNX lock shared by every api replica. The TTL bounds how long
// a crashed holder can block a user.
type Redis struct {
	client     redisStore
	ttl        time.Duration
	wait       time.Duration
	retryEvery time.Duration
	logg       *logger.Logger
}

func NewRedis(client redisStore, opts RedisOptions) *Redis {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	retry := opts.RetryEvery
	if retry <= 0 {
		retry = defaultRetryEvery
	}
	return &Redis{
		client:     client,
		ttl:        ttl,
		wait:       opts.Wait,
		retryEvery: retry,
		logg:       opts.Logger,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := r.client.LockKey(lockScope, key)
	owner := uuid.NewString()

	waitCtx, cancel := waitContext(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.retryEvery)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(waitCtx, redisKey, owner, r.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire lock")
		}
		if ok {
			return r.unlockFunc(ctx, redisKey, owner), nil
		}
		select {
		case <-waitCtx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, waitCtx.Err(), "timed out waiting for lock")
		case <-ticker.C:
		}
	}
}

func (r *Redis) unlockFunc(ctx context.Context, key, owner string) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if _, err := r.client.DelIfValue(releaseCtx, key, owner); err != nil && r.logg != nil {
				r.logg.Error(r.logg.WithField(ctx, "lock_key", key), "failed to release lock", err)
			}
		})
	}
}
