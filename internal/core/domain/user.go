package domain

import (
	"strings"
	"time"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAgent
}

// Identity models a registered principal of the back office.
type Identity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the normalized snapshot carried by session tokens.
func (i *Identity) Principal() Principal {
	return Principal{ID: i.ID, Role: i.Role, Name: i.Name}
}

// NormalizeEmail trims and lower-cases an identifier so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
