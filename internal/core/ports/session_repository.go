package ports

import (
	"context"
	"time"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
)

// SessionRepository persists Session Ledger entries keyed by token hash.
type SessionRepository interface {
	Insert(ctx context.Context, session *domain.Session) error
	// FindByTokenHash returns domain.ErrSessionNotFound when absent.
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// Invalidate clears the validity flag. Missing or already invalid
	// entries are not an error; the returned flag reports whether a row changed.
	Invalidate(ctx context.Context, tokenHash string, at time.Time) (bool, error)
	// FindActive lists valid, unexpired entries of an identity for a purpose.
	FindActive(ctx context.Context, identityID string, purpose domain.Purpose, now time.Time) ([]*domain.Session, error)
}

// RevocationCache is a fast negative lookup in front of the ledger store.
type RevocationCache interface {
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error
}
