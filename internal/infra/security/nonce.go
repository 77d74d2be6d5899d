// Package security issues and verifies the anti-forgery tokens carried by the
// consent notice links.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultNonceTTL matches the lifetime of an admin notice link.
const DefaultNonceTTL = 24 * time.Hour

const nonceAudience = "telemetry-notice"

var (
	// ErrEmptySecret is returned when the issuer is built without a signing secret.
	ErrEmptySecret = errors.New("nonce secret must not be empty")
	// ErrEmptyAction is returned when a token is requested for no action.
	ErrEmptyAction = errors.New("nonce action must not be empty")
)

// NonceIssuer signs short-lived HS256 tokens bound to a single action.
type NonceIssuer struct {
	secret []byte
	ttl    time.Duration
	nowF   func() time.Time
}

// NewNonceIssuer returns an issuer using secret. A non-positive ttl falls back
// to DefaultNonceTTL.
func NewNonceIssuer(secret string, ttl time.Duration) (*NonceIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &NonceIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		nowF:   time.Now,
	}, nil
}

// Issue returns a fresh token for action.
func (n *NonceIssuer) Issue(action string) (string, error) {
	if action == "" {
		return "", ErrEmptyAction
	}
	now := n.nowF().UTC()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   action,
		Audience:  jwt.ClaimStrings{nonceAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(n.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.secret)
}

// Verify reports whether token is a valid, unexpired token for action.
// Malformed input is simply invalid.
func (n *NonceIssuer) Verify(token, action string) bool {
	if token == "" || action == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return n.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(nonceAudience),
		jwt.WithSubject(action),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(n.nowF),
	)
	if err != nil {
		return false
	}
	return parsed.Valid
}
