package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// UserRepository defines identity persistence. Implementations enforce email
// and username uniqueness with a storage-level constraint.
type UserRepository interface {
	// FindByEmail expects an already normalized email. Returns domain.ErrUserNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// List returns every identity ordered by username ascending.
	List(ctx context.Context) ([]*domain.User, error)
	// Create persists a new identity or fails with *domain.DuplicateIdentityError.
	Create(ctx context.Context, email, username, passwordHash string) (*domain.User, error)
}
