package ports

import "github.com/99minutos/identity-service/internal/core/domain"

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(claim domain.TokenClaim) (string, error)
	// Verify returns domain.ErrInvalidToken or domain.ErrExpiredToken on failure.
	Verify(token string) (domain.TokenClaim, error)
}
