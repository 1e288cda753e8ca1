// Package token issues and decodes the signed session tokens of the back
// office. Decode is the single verification routine shared by the request
// validator and the route gate.
package token

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
)

const (
	DefaultTTL = 24 * time.Hour
	issuer     = "crm-backoffice"
)

// Claims is the token payload. Perms is a display snapshot taken at login
// and is never consulted for authorization.
type Claims struct {
	Name  string              `json:"name"`
	Role  domain.Role         `json:"role"`
	Perms domain.Capabilities `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Principal normalizes the claims into the identity snapshot handlers use.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{ID: c.Subject, Role: c.Role, Name: c.Name}
}

// Codec signs and verifies HS256 session tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a codec. A non-positive ttl falls back to DefaultTTL.
func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the codec reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL is the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue mints a token for p. The jti claim is the ledger reference.
func (c *Codec) Issue(p domain.Principal, perms domain.Capabilities) (string, *Claims, error) {
	if p.ID == "" || !p.Role.Valid() {
		return "", nil, fmt.Errorf("issue token: %w", domain.ErrInvalidInput)
	}

	now := c.now().UTC()
	claims := &Claims{
		Name:  p.Name,
		Role:  p.Role,
		Perms: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Decode verifies the signature, the algorithm, the embedded expiry and the
// required claims. Every failure is reported as domain.ErrTokenInvalid.
func (c *Codec) Decode(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing required claims", domain.ErrTokenInvalid)
	}
	return claims, nil
}

// FromRequest extracts the bearer token from the Authorization header, or
// from the session cookie when no bearer header is present.
func FromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
