package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldline/crm-backoffice/internal/api/metrics"
	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
)

// UsersHandler serves the administrative Users resource. Access per action
// is enforced by the Authorize middleware the router mounts in front of it.
type UsersHandler struct {
	service ports.IdentityService
}

func NewUsersHandler(service ports.IdentityService) *UsersHandler {
	return &UsersHandler{service: service}
}

// List handles GET /api/users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/users [get]
func (h *UsersHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users, Count: len(users)})
}

// Get handles GET /api/users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/users/{id} [get]
func (h *UsersHandler) Get(c echo.Context) error {
	identity, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: identity})
}

// UpdateRole handles PATCH /api/users/:id/role. Outstanding tokens keep
// their previous role until revoked.
//
// @Summary      Change a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/users/{id}/role [patch]
func (h *UsersHandler) UpdateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.service.UpdateRole(c.Request().Context(), c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: identity})
}

// RevokeSessions handles DELETE /api/users/:id/sessions.
//
// @Summary      Revoke all sessions of a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  revokedResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/users/{id}/sessions [delete]
func (h *UsersHandler) RevokeSessions(c echo.Context) error {
	n, err := h.service.RevokeSessions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues("admin").Add(float64(n))
	return c.JSON(http.StatusOK, revokedResponse{Revoked: n})
}
