package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// AuthService registers and authenticates users. Both operations return the
// signed access token together with the identity.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// Authorizer resolves a raw bearer token to a live identity.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*domain.User, error)
}

type UserService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
