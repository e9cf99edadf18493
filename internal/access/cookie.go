package access

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"resume-tailor/internal/common/logger"
)

// MinCookieSecretLength is the shortest HMAC key accepted for signed grants.
const MinCookieSecretLength = 32

var ErrWeakSecret = errors.New("cookie secret must be at least 32 bytes")

// grantClaims is the payload of a signed grant.
type grantClaims struct {
	jwt.RegisteredClaims
}

// CookieStore issues stateless grants: the token is an HS256 JWT carrying
// the identity and expiry, and authorization is signature verification.
// Nothing is stored server side.
type CookieStore struct {
	secret []byte
	now    Clock
	logger logger.Logger
}

func NewCookieStore(secret []byte, log logger.Logger, clock Clock) (*CookieStore, error) {
	if len(secret) < MinCookieSecretLength {
		return nil, ErrWeakSecret
	}
	if clock == nil {
		clock = systemClock
	}
	return &CookieStore{
		secret: secret,
		now:    clock,
		logger: log.WithFields(map[string]interface{}{"store": "cookie"}),
	}, nil
}

func (s *CookieStore) Grant(_ context.Context, identity string, d time.Duration) (*AccessGrant, error) {
	// JWT dates carry whole seconds
	g, err := newGrant(identity, d, s.now().Truncate(time.Second))
	if err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   g.Identity,
			IssuedAt:  jwt.NewNumericDate(g.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(g.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	g.Token = signed

	issued(s.logger, "cookie", g)
	return g, nil
}

func (s *CookieStore) IsAuthorized(_ context.Context, token string) bool {
	_, err := s.Parse(token)
	return err == nil
}

// Parse verifies a signed grant and returns it.
func (s *CookieStore) Parse(token string) (*AccessGrant, error) {
	if token == "" {
		return nil, jwt.ErrTokenMalformed
	}

	claims := &grantClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("rejected signed grant", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	g := &AccessGrant{
		Identity:  claims.Subject,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		g.IssuedAt = claims.IssuedAt.Time
	}
	return g, nil
}
