package access

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-tailor/internal/common/logger"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS access_grants (
	token      TEXT PRIMARY KEY,
	identity   TEXT NOT NULL,
	issued_at  TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps grants in the access_grants table. When a Redis client
// is supplied, lookups read through a short-lived cache keyed by token.
type PostgresStore struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	prefix   string
	now      Clock
	logger   logger.Logger
}

// PostgresOptions tunes the optional Redis read-through cache.
type PostgresOptions struct {
	Cache    *redis.Client
	CacheTTL time.Duration
	Prefix   string
	Clock    Clock
}

func NewPostgresStore(db *sql.DB, opts PostgresOptions, log logger.Logger) *PostgresStore {
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = "grant:"
	}
	return &PostgresStore{
		db:       db,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		prefix:   opts.Prefix,
		now:      opts.Clock,
		logger:   log.WithFields(map[string]interface{}{"store": "postgres"}),
	}
}

// EnsureSchema creates the grants table if it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create access_grants: %w", err)
	}
	return nil
}

func (s *PostgresStore) Grant(ctx context.Context, identity string, d time.Duration) (*AccessGrant, error) {
	g, err := newGrant(identity, d, s.now())
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO access_grants (token, identity, issued_at, expires_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, g.Token, g.Identity, g.IssuedAt, g.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.cacheGrant(ctx, g)
	issued(s.logger, "postgres", g)
	return g, nil
}

func (s *PostgresStore) IsAuthorized(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	now := s.now()

	if g, ok := s.cached(ctx, token); ok {
		return g.ValidAt(now)
	}

	var g AccessGrant
	query := `SELECT token, identity, issued_at, expires_at FROM access_grants WHERE token = $1`
	err := s.db.QueryRowContext(ctx, query, token).Scan(&g.Token, &g.Identity, &g.IssuedAt, &g.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false
		}
		return denied(s.logger, "postgres", err)
	}

	if !g.ValidAt(now) {
		return false
	}
	s.cacheGrant(ctx, &g)
	return true
}

// Prune deletes grants that expired before now and returns how many went.
func (s *PostgresStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM access_grants WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) cached(ctx context.Context, token string) (*AccessGrant, bool) {
	if s.cache == nil {
		return nil, false
	}
	val, err := s.cache.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("grant cache read failed, falling back to postgres", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}
	var g AccessGrant
	if err := json.Unmarshal([]byte(val), &g); err != nil {
		return nil, false
	}
	return &g, true
}

func (s *PostgresStore) cacheGrant(ctx context.Context, g *AccessGrant) {
	if s.cache == nil {
		return
	}
	ttl := g.ExpiresAt.Sub(s.now())
	if ttl > s.cacheTTL {
		ttl = s.cacheTTL
	}
	if ttl <= 0 {
		return
	}
	data, _ := json.Marshal(g)
	if err := s.cache.Set(ctx, s.prefix+g.Token, data, ttl).Err(); err != nil {
		s.logger.Debug("grant cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
