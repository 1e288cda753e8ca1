package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
	"github.com/fieldline/crm-backoffice/internal/core/token"
)

// ---------------------------------------------------------------------------
// In-memory identity repository
// ---------------------------------------------------------------------------

type stubIdentityRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Identity
	seq     int
	findErr error
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{byID: make(map[string]*domain.Identity)}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func (r *stubIdentityRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == identity.Email {
			return nil, domain.ErrIdentityExists
		}
	}
	r.seq++
	c := cloneIdentity(identity)
	c.ID = fmt.Sprintf("id-%d", r.seq)
	r.byID[c.ID] = c
	return cloneIdentity(c), nil
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, i := range r.byID {
		if i.Email == email {
			return cloneIdentity(i), nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	i, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(i), nil
}

func (r *stubIdentityRepo) List(_ context.Context) ([]*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Identity, 0, len(r.byID))
	for _, i := range r.byID {
		out = append(out, cloneIdentity(i))
	}
	return out, nil
}

func (r *stubIdentityRepo) update(id string, fn func(*domain.Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	fn(i)
	return nil
}

func (r *stubIdentityRepo) UpdatePasswordHash(_ context.Context, id, hash string, at time.Time) error {
	return r.update(id, func(i *domain.Identity) { i.PasswordHash = hash; i.UpdatedAt = at })
}

func (r *stubIdentityRepo) UpdateRole(_ context.Context, id string, role domain.Role, at time.Time) error {
	return r.update(id, func(i *domain.Identity) { i.Role = role; i.UpdatedAt = at })
}

func (r *stubIdentityRepo) MarkVerified(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(i *domain.Identity) { i.Verified = true; i.UpdatedAt = at })
}

func (r *stubIdentityRepo) get(id string) *domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneIdentity(r.byID[id])
}

// ---------------------------------------------------------------------------
// In-memory session repository
// ---------------------------------------------------------------------------

type stubSessionRepo struct {
	mu        sync.Mutex
	byHash    map[string]*domain.Session
	findErr   error
	insertErr error
	lookups   int
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{byHash: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Insert(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, exists := r.byHash[s.TokenHash]; exists {
		return errors.New("duplicate token hash")
	}
	c := *s
	c.ID = fmt.Sprintf("s-%d", len(r.byHash)+1)
	r.byHash[s.TokenHash] = &c
	s.ID = c.ID
	return nil
}

func (r *stubSessionRepo) FindByTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.byHash[hash]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	c := *s
	return &c, nil
}

func (r *stubSessionRepo) Invalidate(_ context.Context, hash string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[hash]
	if !ok || !s.Valid {
		return false, nil
	}
	s.Valid = false
	s.RevokedAt = &at
	return true, nil
}

func (r *stubSessionRepo) FindActive(_ context.Context, identityID string, purpose domain.Purpose, now time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*domain.Session
	for _, s := range r.byHash {
		if s.IdentityID == identityID && s.Purpose == purpose && s.ActiveAt(now) {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) entry(rawToken string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[HashToken(rawToken)]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

func (r *stubSessionRepo) set(rawToken string, fn func(*domain.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byHash[HashToken(rawToken)]; ok {
		fn(s)
	}
}

// ---------------------------------------------------------------------------
// Revocation cache + notifier stubs
// ---------------------------------------------------------------------------

type stubCache struct {
	revoked map[string]time.Duration
	err     error
}

func newStubCache() *stubCache { return &stubCache{revoked: make(map[string]time.Duration)} }

func (c *stubCache) IsRevoked(_ context.Context, hash string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.revoked[hash]
	return ok, nil
}

func (c *stubCache) MarkRevoked(_ context.Context, hash string, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.revoked[hash] = ttl
	return nil
}

type stubNotifier struct {
	notices []ports.VerificationNotice
	err     error
}

func (n *stubNotifier) Notify(_ context.Context, notice ports.VerificationNotice) error {
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice)
	return nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

const (
	testSecret        = "test-signing-secret"
	bootstrapEmail    = "admin@crm.local"
	bootstrapPassword = "ChangeMe123!"
	defaultTestPasswd = "correct-horse"
)

type fixture struct {
	identities *stubIdentityRepo
	sessions   *stubSessionRepo
	cache      *stubCache
	notifier   *stubNotifier
	ledger     *SessionLedger
	codec      *token.Codec
	matrix     *domain.PermissionMatrix
	auth       *AuthService
	validator  *RequestValidator
	users      *IdentityService
}

type fixtureOption func(*AuthConfig)

func withoutRevokeOnChange() fixtureOption {
	return func(c *AuthConfig) { c.RevokeOnPasswordChange = false }
}

func newFixture(opts ...fixtureOption) *fixture {
	f := &fixture{
		identities: newStubIdentityRepo(),
		sessions:   newStubSessionRepo(),
		cache:      newStubCache(),
		notifier:   &stubNotifier{},
		codec:      token.NewCodec(testSecret, 24*time.Hour),
		matrix:     domain.DefaultPermissionMatrix(),
	}
	log := zerolog.Nop()
	f.ledger = NewSessionLedger(f.sessions, f.cache, log)

	cfg := AuthConfig{
		BcryptCost:             bcrypt.MinCost,
		MinPasswordLength:      8,
		RevokeOnPasswordChange: true,
		Bootstrap: BootstrapAdmin{
			Name:     "Administrator",
			Email:    bootstrapEmail,
			Password: bootstrapPassword,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f.auth = NewAuthService(AuthDependencies{
		Identities: f.identities,
		Ledger:     f.ledger,
		Codec:      f.codec,
		Matrix:     f.matrix,
		Notifier:   f.notifier,
	}, cfg, log)
	f.validator = NewRequestValidator(f.codec, f.ledger, f.matrix, "token", log)
	f.users = NewIdentityService(f.identities, f.ledger, log)
	return f
}

// seed stores an identity with the given role and password directly.
func (f *fixture) seed(email string, role domain.Role, password string) *domain.Identity {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	created, err := f.identities.Create(context.Background(), &domain.Identity{
		Name:         email,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		panic(err)
	}
	return created
}
