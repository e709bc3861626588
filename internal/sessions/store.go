package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/pieshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pieshop-backend/pkg/errors"
)

const defaultTTL = 24 * time.Hour

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(userID int64) string
}

// Store keeps each chat user's conversation mode in Redis. A missing key
// means idle, so only non-idle modes are written.
type Store struct {
	client redisStore
	ttl    time.Duration
}

func NewStore(client redisStore, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl}, nil
}

// Mode returns the user's mode. Unknown stored values read as idle.
func (s *Store) Mode(ctx context.Context, userID int64) (enums.SessionMode, error) {
	value, err := s.client.Get(ctx, s.client.SessionKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return enums.SessionModeIdle, nil
		}
		return enums.SessionModeIdle, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	mode, err := enums.ParseSessionMode(value)
	if err != nil {
		return enums.SessionModeIdle, nil
	}
	return mode, nil
}

func (s *Store) SetMode(ctx context.Context, userID int64, mode enums.SessionMode) error {
	if !mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid session mode").
			WithDetails(map[string]any{"mode": mode.String()})
	}
	if mode == enums.SessionModeIdle {
		return s.Reset(ctx, userID)
	}
	if err := s.client.Set(ctx, s.client.SessionKey(userID), mode.String(), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	return nil
}

func (s *Store) Reset(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.client.SessionKey(userID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset session")
	}
	return nil
}
