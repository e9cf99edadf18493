package access

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resume-tailor/internal/common/config"
	"resume-tailor/internal/common/logger"
)

// Backends carries the connections a store may need. Only the ones the
// configured backend uses must be set.
type Backends struct {
	DB    *sql.DB
	Redis *redis.Client
}

// NewStore builds the store selected by cfg.Backend.
func NewStore(ctx context.Context, cfg config.AccessConfig, b Backends, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryStore(log, nil), nil

	case config.BackendFile:
		return NewFileStore(cfg.FilePath, log, nil)

	case config.BackendPostgres:
		if b.DB == nil {
			return nil, fmt.Errorf("postgres backend requires a database connection")
		}
		store := NewPostgresStore(b.DB, PostgresOptions{
			Cache:    b.Redis,
			CacheTTL: config.GetDuration(cfg.CacheTTL),
			Prefix:   cfg.RedisKeyspace,
		}, log)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("redis backend requires a redis client")
		}
		return NewRedisStore(b.Redis, cfg.RedisKeyspace, log, nil), nil

	case config.BackendCookie:
		return NewCookieStore([]byte(cfg.CookieSecret), log, nil)

	default:
		return nil, fmt.Errorf("unknown access backend %q", cfg.Backend)
	}
}
