package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
)

// IdentityService implements the administrative side of the Users resource.
// Outstanding tokens keep their role snapshot after UpdateRole until they
// are revoked or expire.
type IdentityService struct {
	identities ports.IdentityRepository
	ledger     *SessionLedger
	log        zerolog.Logger
	now        func() time.Time
}

func NewIdentityService(identities ports.IdentityRepository, ledger *SessionLedger, log zerolog.Logger) *IdentityService {
	return &IdentityService{identities: identities, ledger: ledger, log: log, now: time.Now}
}

func (s *IdentityService) List(ctx context.Context) ([]*domain.Identity, error) {
	return s.identities.List(ctx)
}

func (s *IdentityService) Get(ctx context.Context, id string) (*domain.Identity, error) {
	return s.identities.FindByID(ctx, id)
}

// UpdateRole changes the role of an identity.
func (s *IdentityService) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.Identity, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if err := s.identities.UpdateRole(ctx, id, role, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.log.Info().Str("identity_id", id).Str("role", string(role)).Msg("role updated")
	return s.identities.FindByID(ctx, id)
}

// RevokeSessions invalidates every active session of an identity.
func (s *IdentityService) RevokeSessions(ctx context.Context, id string) (int, error) {
	if _, err := s.identities.FindByID(ctx, id); err != nil {
		return 0, err
	}
	n, err := s.ledger.RevokeIdentity(ctx, id, "")
	if err != nil {
		return n, err
	}
	s.log.Info().Str("identity_id", id).Int("revoked", n).Msg("sessions revoked")
	return n, nil
}
