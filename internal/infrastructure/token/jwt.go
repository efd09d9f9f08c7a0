// Package token issues and verifies HS256 bearer tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// DefaultTTL applies when no expiry is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Claims is the signed payload: the identity claim plus exp/iat.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a process-wide secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Issuer)

// WithClock overrides the time source used for iat, exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer fails with a configuration error when secret is empty. A
// non-positive ttl falls back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, &domain.ConfigurationError{Key: "JWT_SECRET", Reason: "is required"}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	i := &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) Issue(claim domain.TokenClaim) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: claim.UserID,
		Email:  claim.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. Expired tokens yield
// domain.ErrExpiredToken; every other failure yields domain.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (domain.TokenClaim, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, i.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenClaim{}, fmt.Errorf("%w: %v", domain.ErrExpiredToken, err)
		}
		return domain.TokenClaim{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !tkn.Valid || claims.UserID == "" {
		return domain.TokenClaim{}, domain.ErrInvalidToken
	}

	return domain.TokenClaim{UserID: claims.UserID, Email: claims.Email}, nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return i.secret, nil
}
