package ports

import (
	"context"
	"time"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
)

// IdentityRepository defines persistence for registered principals.
type IdentityRepository interface {
	Count(ctx context.Context) (int64, error)
	// Create returns domain.ErrIdentityExists when the e-mail is taken.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	// FindByEmail and FindByID return domain.ErrIdentityNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	List(ctx context.Context) ([]*domain.Identity, error)
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
	UpdateRole(ctx context.Context, id string, role domain.Role, at time.Time) error
	MarkVerified(ctx context.Context, id string, at time.Time) error
}
