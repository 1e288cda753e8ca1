package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldline/crm-backoffice/internal/api/metrics"
	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
	"github.com/fieldline/crm-backoffice/internal/core/token"
)

// Context keys set on authorized requests.
const (
	PrincipalKey = "principal"
	TokenKey     = "token"
)

// Authenticate admits any caller holding an active session, whatever its role.
func Authenticate(v ports.RequestValidator, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := token.FromRequest(c.Request(), cookieName)
			verdict := v.Authenticate(c.Request().Context(), raw)
			metrics.VerdictsTotal.WithLabelValues(string(verdict.Kind), "session").Inc()
			return admit(c, next, verdict, raw)
		}
	}
}

// Authorize admits callers whose role may perform action on resource.
// Anonymous callers get 401, authenticated callers without the grant 403.
func Authorize(v ports.RequestValidator, cookieName string, resource domain.Resource, action domain.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := token.FromRequest(c.Request(), cookieName)
			verdict := v.Validate(c.Request().Context(), raw, resource, action)
			metrics.VerdictsTotal.WithLabelValues(string(verdict.Kind), string(resource)).Inc()
			return admit(c, next, verdict, raw)
		}
	}
}

func admit(c echo.Context, next echo.HandlerFunc, verdict domain.Verdict, raw string) error {
	switch {
	case verdict.IsAuthorized():
		c.Set(PrincipalKey, *verdict.Principal)
		c.Set(TokenKey, raw)
		return next(c)
	case verdict.Kind == domain.VerdictForbidden:
		return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
	default:
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
}

// PrincipalFromContext returns the principal stored by Authenticate or
// Authorize.
func PrincipalFromContext(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(domain.Principal)
	return p, ok
}

// TokenFromContext returns the raw token of the current request.
func TokenFromContext(c echo.Context) string {
	raw, _ := c.Get(TokenKey).(string)
	return raw
}
