// Package access tracks the time-boxed grants that unlock the rewrite feature.
//
// Every backend answers the same two questions: issue a grant for an
// identity, and tell whether a presented token is currently authorized.
// Lookups fail closed: a backend that cannot be read denies access.
package access

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"resume-tailor/internal/common/errors"
	"resume-tailor/internal/common/logger"
	"resume-tailor/internal/common/metrics"
)

// DefaultGrantDuration is the usage window bought by one payment.
const DefaultGrantDuration = 24 * time.Hour

var (
	// ErrStoreUnavailable wraps backend failures while issuing a grant.
	ErrStoreUnavailable = stderrors.New("access store unavailable")

	ErrInvalidDuration = stderrors.New("grant duration must be positive")
	ErrEmptyIdentity   = stderrors.New("grant identity is empty")
)

// AccessGrant is an issued authorization. It is never mutated after creation.
type AccessGrant struct {
	Identity  string    `json:"identity"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ValidAt reports whether the grant authorizes a request made at now.
func (g *AccessGrant) ValidAt(now time.Time) bool {
	return g != nil && now.Before(g.ExpiresAt)
}

// Store issues and checks access grants.
type Store interface {
	// Grant issues a new grant for identity valid for d.
	Grant(ctx context.Context, identity string, d time.Duration) (*AccessGrant, error)
	// IsAuthorized reports whether token belongs to an unexpired grant.
	IsAuthorized(ctx context.Context, token string) bool
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// NewIdentity returns a fresh opaque identity for a grant.
func NewIdentity() string {
	return uuid.NewString()
}

func newGrant(identity string, d time.Duration, now time.Time) (*AccessGrant, error) {
	if d <= 0 {
		return nil, ErrInvalidDuration
	}
	if identity == "" {
		return nil, ErrEmptyIdentity
	}
	return &AccessGrant{
		Identity:  identity,
		Token:     identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(d),
	}, nil
}

// denied records a store failure and returns false so callers can
// `return denied(...)` from IsAuthorized.
func denied(log logger.Logger, backend string, err error) bool {
	metrics.StoreFailures.WithLabelValues(backend, "lookup").Inc()
	stdErr := errors.NewStoreUnavailableError(backend, err)
	log.Error("access store unavailable, denying", map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"details":       stdErr.Details,
		"errorCategory": errors.GetErrorCategory(stdErr.Code),
	})
	return false
}

func issued(log logger.Logger, backend string, g *AccessGrant) {
	log.Info("access grant issued", map[string]interface{}{
		"backend":   backend,
		"identity":  g.Identity,
		"expiresAt": g.ExpiresAt.Format(time.RFC3339),
	})
}

// Issue grants a fresh identity access for d and records where the grant
// came from (success redirect, admin API, CLI).
func Issue(ctx context.Context, store Store, backend, source string, d time.Duration) (*AccessGrant, error) {
	g, err := store.Grant(ctx, NewIdentity(), d)
	if err != nil {
		metrics.StoreFailures.WithLabelValues(backend, "grant").Inc()
		return nil, err
	}
	metrics.GrantsIssued.WithLabelValues(backend, source).Inc()
	return g, nil
}
