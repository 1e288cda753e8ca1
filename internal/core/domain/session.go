package domain

import "time"

// Purpose tags what a ledger entry was issued for.
type Purpose string

const (
	PurposeAccess Purpose = "access"
	PurposeVerify Purpose = "verify"
)

// Session is a Session Ledger entry. The ledger is the only record of
// revocation: Valid=false invalidates a token before its natural expiry.
type Session struct {
	ID         string
	IdentityID string
	TokenHash  string
	Purpose    Purpose
	Valid      bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
	RevokedAt  *time.Time
}

// ActiveAt reports whether the entry can still be used at now.
func (s *Session) ActiveAt(now time.Time) bool {
	return s != nil && s.Valid && now.Before(s.ExpiresAt)
}
