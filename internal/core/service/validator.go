package service

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/token"
)

// ActiveChecker is the part of the ledger the validator reads.
type ActiveChecker interface {
	IsActive(ctx context.Context, token string) (bool, error)
}

// RequestValidator turns a bearer token into a verdict. Decoding failures,
// revoked sessions and ledger outages all collapse into anonymous.
type RequestValidator struct {
	codec      *token.Codec
	ledger     ActiveChecker
	matrix     *domain.PermissionMatrix
	cookieName string
	log        zerolog.Logger
}

// NewRequestValidator wires a validator around an explicit matrix.
func NewRequestValidator(codec *token.Codec, ledger ActiveChecker, matrix *domain.PermissionMatrix, cookieName string, log zerolog.Logger) *RequestValidator {
	return &RequestValidator{codec: codec, ledger: ledger, matrix: matrix, cookieName: cookieName, log: log}
}

// ValidateRequest extracts the token from r and validates it.
func (v *RequestValidator) ValidateRequest(r *http.Request, resource domain.Resource, action domain.Action) domain.Verdict {
	return v.Validate(r.Context(), token.FromRequest(r, v.cookieName), resource, action)
}

// Validate runs decode, ledger and matrix checks in that order.
func (v *RequestValidator) Validate(ctx context.Context, rawToken string, resource domain.Resource, action domain.Action) domain.Verdict {
	verdict := v.Authenticate(ctx, rawToken)
	if !verdict.IsAuthorized() {
		return verdict
	}
	if !v.matrix.Allows(verdict.Principal.Role, resource, action) {
		v.log.Debug().
			Str("identity_id", verdict.Principal.ID).
			Str("role", string(verdict.Principal.Role)).
			Str("resource", string(resource)).
			Str("action", string(action)).
			Msg("permission denied")
		return domain.Forbidden()
	}
	return verdict
}

// Authenticate checks that rawToken is well formed, unexpired and still
// active in the ledger, without consulting the permission matrix.
func (v *RequestValidator) Authenticate(ctx context.Context, rawToken string) (verdict domain.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v.log.Error().Interface("panic", r).Msg("token validation panicked")
			verdict = domain.Anonymous()
		}
	}()

	claims, err := v.codec.Decode(rawToken)
	if err != nil {
		return domain.Anonymous()
	}

	active, err := v.ledger.IsActive(ctx, rawToken)
	if err != nil {
		v.log.Error().Err(err).Str("identity_id", claims.Subject).Msg("session ledger unavailable")
		return domain.Anonymous()
	}
	if !active {
		return domain.Anonymous()
	}
	return domain.Authorized(claims.Principal())
}
