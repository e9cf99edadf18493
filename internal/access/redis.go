package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-tailor/internal/common/logger"
)

// RedisStore keeps each grant under its own key with a TTL equal to the
// grant duration, so Redis performs the expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    Clock
	logger logger.Logger
}

func NewRedisStore(client *redis.Client, prefix string, log logger.Logger, clock Clock) *RedisStore {
	if prefix == "" {
		prefix = "grant:"
	}
	if clock == nil {
		clock = systemClock
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    clock,
		logger: log.WithFields(map[string]interface{}{"store": "redis"}),
	}
}

func (s *RedisStore) Grant(ctx context.Context, identity string, d time.Duration) (*AccessGrant, error) {
	g, err := newGrant(identity, d, s.now())
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.prefix+g.Token, data, d).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	issued(s.logger, "redis", g)
	return g, nil
}

func (s *RedisStore) IsAuthorized(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	val, err := s.client.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false
		}
		return denied(s.logger, "redis", err)
	}

	var g AccessGrant
	if err := json.Unmarshal([]byte(val), &g); err != nil {
		return denied(s.logger, "redis", fmt.Errorf("decode grant: %w", err))
	}
	return g.ValidAt(s.now())
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
