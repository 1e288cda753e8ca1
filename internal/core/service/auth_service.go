package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
	"github.com/fieldline/crm-backoffice/internal/core/token"
)

const (
	DefaultMinPasswordLength = 8
	DefaultVerificationTTL   = 48 * time.Hour

	// bcrypt ignores input past 72 bytes; longer secrets are rejected.
	maxPasswordLength = 72
)

// BootstrapAdmin is the identity provisioned when the store is empty.
type BootstrapAdmin struct {
	Name     string
	Email    string
	Password string
}

// AuthConfig holds the credential policy.
type AuthConfig struct {
	BcryptCost             int
	MinPasswordLength      int
	VerificationTTL        time.Duration
	RevokeOnPasswordChange bool
	Bootstrap              BootstrapAdmin
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Identities ports.IdentityRepository
	Ledger     *SessionLedger
	Codec      *token.Codec
	Matrix     *domain.PermissionMatrix
	Notifier   ports.VerificationNotifier
}

// AuthService implements registration, login, logout, e-mail verification
// and the self-service password change.
type AuthService struct {
	identities ports.IdentityRepository
	ledger     *SessionLedger
	codec      *token.Codec
	matrix     *domain.PermissionMatrix
	notifier   ports.VerificationNotifier
	cfg        AuthConfig
	log        zerolog.Logger
	now        func() time.Time

	// compared against when the identity does not exist so both login
	// failure paths do the same work
	dummyHash []byte
}

func NewAuthService(deps AuthDependencies, cfg AuthConfig, log zerolog.Logger) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = DefaultVerificationTTL
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.BcryptCost)

	return &AuthService{
		identities: deps.Identities,
		ledger:     deps.Ledger,
		codec:      deps.Codec,
		matrix:     deps.Matrix,
		notifier:   deps.Notifier,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		dummyHash:  dummy,
	}
}

// Register creates an agent identity, or an admin when the store is empty,
// and dispatches an e-mail verification artifact.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidInput
	}
	if err := s.checkPolicy(in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	count, err := s.identities.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	role := domain.RoleAgent
	if count == 0 {
		role = domain.RoleAdmin
	}

	now := s.now().UTC()
	created, err := s.identities.Create(ctx, &domain.Identity{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("identity_id", created.ID).Str("role", string(created.Role)).Msg("identity registered")
	s.sendVerification(ctx, created)
	return created, nil
}

func (s *AuthService) sendVerification(ctx context.Context, identity *domain.Identity) {
	artifact := uuid.NewString()
	expiry := s.now().Add(s.cfg.VerificationTTL)
	if _, err := s.ledger.Record(ctx, identity.ID, artifact, domain.PurposeVerify, expiry); err != nil {
		s.log.Error().Err(err).Str("identity_id", identity.ID).Msg("failed to record verification artifact")
		return
	}
	if s.notifier == nil {
		return
	}
	notice := ports.VerificationNotice{
		IdentityID: identity.ID,
		Name:       identity.Name,
		Email:      identity.Email,
		Artifact:   artifact,
	}
	if err := s.notifier.Notify(ctx, notice); err != nil {
		s.log.Warn().Err(err).Str("identity_id", identity.ID).Msg("failed to dispatch verification notice")
	}
}

// Login verifies credentials and issues a ledger-backed session token.
// Unknown e-mail and wrong password return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.bootstrap(ctx); err != nil {
		return nil, err
	}

	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	caps := s.matrix.PermissionsFor(identity.Role)
	raw, claims, err := s.codec.Issue(identity.Principal(), caps)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	expiresAt := claims.ExpiresAt.Time
	if _, err := s.ledger.Record(ctx, identity.ID, raw, domain.PurposeAccess, expiresAt); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("identity_id", identity.ID).Str("role", string(identity.Role)).Msg("session issued")
	return &ports.LoginResult{
		Token:        raw,
		ExpiresAt:    expiresAt,
		Identity:     identity,
		Capabilities: caps,
	}, nil
}

// bootstrap provisions the configured administrator on first run. It is
// the only place a default identity is created.
func (s *AuthService) bootstrap(ctx context.Context) error {
	count, err := s.identities.Count(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	b := s.cfg.Bootstrap
	if count > 0 || b.Email == "" || b.Password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(b.Password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	name := b.Name
	if name == "" {
		name = "Administrator"
	}
	now := s.now().UTC()
	created, err := s.identities.Create(ctx, &domain.Identity{
		Name:         name,
		Email:        domain.NormalizeEmail(b.Email),
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIdentityExists) {
			return nil
		}
		return fmt.Errorf("bootstrap: %w", err)
	}
	s.log.Warn().Str("identity_id", created.ID).Str("email", created.Email).Msg("bootstrap administrator created, change its password")
	return nil
}

// Logout revokes the caller's session. The flag is false when the token had
// no valid ledger entry left to invalidate.
func (s *AuthService) Logout(ctx context.Context, rawToken string) (bool, error) {
	return s.ledger.Revoke(ctx, rawToken)
}

// VerifyEmail redeems a verification artifact and flags the identity.
func (s *AuthService) VerifyEmail(ctx context.Context, artifact string) (*domain.Identity, error) {
	session, err := s.ledger.Redeem(ctx, artifact, domain.PurposeVerify)
	if err != nil {
		return nil, err
	}
	if err := s.identities.MarkVerified(ctx, session.IdentityID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	return s.identities.FindByID(ctx, session.IdentityID)
}

// ChangeSecret replaces the caller's password after re-checking the
// current one against the stored hash.
func (s *AuthService) ChangeSecret(ctx context.Context, in ports.ChangeSecretInput) error {
	if err := s.checkPolicy(in.NewSecret); err != nil {
		return err
	}

	identity, err := s.identities.FindByID(ctx, in.IdentityID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(in.CurrentSecret)) != nil {
		return domain.ErrIncorrectCurrentSecret
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewSecret), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.identities.UpdatePasswordHash(ctx, identity.ID, string(hash), s.now().UTC()); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.log.Info().Str("identity_id", identity.ID).Msg("password changed")

	if !s.cfg.RevokeOnPasswordChange {
		return nil
	}
	revoked, err := s.ledger.RevokeIdentity(ctx, identity.ID, in.KeepToken)
	if err != nil {
		s.log.Error().Err(err).Str("identity_id", identity.ID).Msg("failed to revoke sessions after password change")
		return nil
	}
	s.log.Info().Str("identity_id", identity.ID).Int("revoked", revoked).Msg("other sessions revoked")
	return nil
}

// Profile returns the identity and its display capabilities.
func (s *AuthService) Profile(ctx context.Context, identityID string) (*domain.Identity, domain.Capabilities, error) {
	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		return nil, nil, err
	}
	return identity, s.matrix.PermissionsFor(identity.Role), nil
}

func (s *AuthService) checkPolicy(secret string) error {
	if utf8.RuneCountInString(secret) < s.cfg.MinPasswordLength {
		return domain.ErrWeakSecret
	}
	if len(secret) > maxPasswordLength {
		return fmt.Errorf("%w: password longer than %d bytes", domain.ErrInvalidInput, maxPasswordLength)
	}
	return nil
}
