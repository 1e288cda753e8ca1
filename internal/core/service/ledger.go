package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
)

// HashToken returns the stable fingerprint under which a token is stored.
func HashToken(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionLedger is the single source of truth for whether a previously
// issued token may still be used.
type SessionLedger struct {
	repo  ports.SessionRepository
	cache ports.RevocationCache
	log   zerolog.Logger
	now   func() time.Time
}

// NewSessionLedger builds a ledger. cache may be nil.
func NewSessionLedger(repo ports.SessionRepository, cache ports.RevocationCache, log zerolog.Logger) *SessionLedger {
	return &SessionLedger{repo: repo, cache: cache, log: log, now: time.Now}
}

// Record inserts a valid entry for token that expires at expiry.
func (l *SessionLedger) Record(ctx context.Context, identityID, token string, purpose domain.Purpose, expiry time.Time) (*domain.Session, error) {
	if identityID == "" || token == "" {
		return nil, fmt.Errorf("record session: %w", domain.ErrInvalidInput)
	}

	session := &domain.Session{
		IdentityID: identityID,
		TokenHash:  HashToken(token),
		Purpose:    purpose,
		Valid:      true,
		ExpiresAt:  expiry.UTC(),
		CreatedAt:  l.now().UTC(),
	}
	if err := l.repo.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}
	return session, nil
}

// IsActive reports whether token has an access entry that is valid and not
// past its ledger expiry. A storage failure is returned to the caller, who
// must fail closed.
func (l *SessionLedger) IsActive(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	hash := HashToken(token)

	if l.cache != nil {
		revoked, err := l.cache.IsRevoked(ctx, hash)
		if err != nil {
			l.log.Warn().Err(err).Msg("revocation cache lookup failed, using ledger store")
		} else if revoked {
			return false, nil
		}
	}

	session, err := l.repo.FindByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return session.Purpose == domain.PurposeAccess && session.ActiveAt(l.now()), nil
}

// Revoke invalidates token and reports whether a valid entry was changed.
// Revoking an unknown or already revoked token is a no-op.
func (l *SessionLedger) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	session, err := l.repo.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return l.revoke(ctx, session)
}

// RevokeIdentity invalidates every active access entry of an identity except
// the one matching keepToken. It returns how many entries were revoked.
func (l *SessionLedger) RevokeIdentity(ctx context.Context, identityID, keepToken string) (int, error) {
	sessions, err := l.repo.FindActive(ctx, identityID, domain.PurposeAccess, l.now())
	if err != nil {
		return 0, fmt.Errorf("revoke identity sessions: %w", err)
	}

	keep := ""
	if keepToken != "" {
		keep = HashToken(keepToken)
	}

	revoked := 0
	for _, s := range sessions {
		if s.TokenHash == keep {
			continue
		}
		changed, err := l.revoke(ctx, s)
		if err != nil {
			return revoked, err
		}
		if changed {
			revoked++
		}
	}
	return revoked, nil
}

// Redeem consumes a one-time artifact of the given purpose.
func (l *SessionLedger) Redeem(ctx context.Context, token string, purpose domain.Purpose) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}
	session, err := l.repo.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("redeem artifact: %w", err)
	}
	if session.Purpose != purpose || !session.ActiveAt(l.now()) {
		return nil, domain.ErrTokenInvalid
	}

	changed, err := l.repo.Invalidate(ctx, session.TokenHash, l.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("redeem artifact: %w", err)
	}
	if !changed {
		// lost a race with a concurrent redeem
		return nil, domain.ErrTokenInvalid
	}
	return session, nil
}

func (l *SessionLedger) revoke(ctx context.Context, s *domain.Session) (bool, error) {
	now := l.now().UTC()
	changed, err := l.repo.Invalidate(ctx, s.TokenHash, now)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}

	if l.cache == nil {
		return changed, nil
	}
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return changed, nil
	}
	if err := l.cache.MarkRevoked(ctx, s.TokenHash, ttl); err != nil {
		l.log.Warn().Err(err).Str("identity_id", s.IdentityID).Msg("failed to mark revocation in cache")
	}
	return changed, nil
}
