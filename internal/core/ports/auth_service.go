package ports

import (
	"context"
	"time"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
)

// RegisterInput carries the self-service registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is returned on successful authentication. Identity is the
// public profile; the hash never leaves the core.
type LoginResult struct {
	Token        string
	ExpiresAt    time.Time
	Identity     *domain.Identity
	Capabilities domain.Capabilities
}

// ChangeSecretInput carries a self-service password change. KeepToken is
// the caller's own session, spared when other sessions are revoked.
type ChangeSecretInput struct {
	IdentityID    string
	CurrentSecret string
	NewSecret     string
	KeepToken     string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Logout reports whether a valid session was invalidated.
	Logout(ctx context.Context, token string) (bool, error)
	ChangeSecret(ctx context.Context, in ChangeSecretInput) error
	VerifyEmail(ctx context.Context, artifact string) (*domain.Identity, error)
	Profile(ctx context.Context, identityID string) (*domain.Identity, domain.Capabilities, error)
}

// IdentityService backs the administrative Users endpoints.
type IdentityService interface {
	List(ctx context.Context) ([]*domain.Identity, error)
	Get(ctx context.Context, id string) (*domain.Identity, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.Identity, error)
	RevokeSessions(ctx context.Context, id string) (int, error)
}

// RequestValidator produces the tri-state verdict every protected route
// branches on. It never returns an error.
type RequestValidator interface {
	Authenticate(ctx context.Context, rawToken string) domain.Verdict
	Validate(ctx context.Context, rawToken string, resource domain.Resource, action domain.Action) domain.Verdict
}
