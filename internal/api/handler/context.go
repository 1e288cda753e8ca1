package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldline/crm-backoffice/internal/api/middleware"
	"github.com/fieldline/crm-backoffice/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Authenticate or
// Authorize middleware. A missing principal is a 401.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok || p.ID == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return p, nil
}
