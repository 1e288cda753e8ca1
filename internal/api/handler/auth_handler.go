package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fieldline/crm-backoffice/internal/api/metrics"
	"github.com/fieldline/crm-backoffice/internal/api/middleware"
	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
)

// CookieConfig controls the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieConfig
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, cookie CookieConfig, log zerolog.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{authService: authService, cookie: cookie, log: log}
}

// Register creates a new identity. The first identity becomes admin.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	req.normalize()
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, userResponse{User: identity})
}

// Login authenticates an identity and returns a session token. The token is
// also set as an HTTP-only cookie for page navigation.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	c.SetCookie(h.sessionCookie(res.Token, res.ExpiresAt))
	return c.JSON(http.StatusOK, loginResponse{
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt,
		User:        res.Identity,
		Permissions: res.Capabilities,
	})
}

// Logout revokes the caller's session.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if _, err := ctxPrincipal(c); err != nil {
		return err
	}
	revoked, err := h.authService.Logout(c.Request().Context(), middleware.TokenFromContext(c))
	if err != nil {
		return err
	}
	if revoked {
		metrics.SessionsRevokedTotal.WithLabelValues("logout").Inc()
	}

	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// Me returns the caller's profile and display permissions.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	identity, caps, err := h.authService.Profile(c.Request().Context(), p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			// an active session for a deleted identity
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{User: identity, Permissions: caps})
}

// ChangePassword replaces the caller's password.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err = h.authService.ChangeSecret(c.Request().Context(), ports.ChangeSecretInput{
		IdentityID:    p.ID,
		CurrentSecret: req.CurrentPassword,
		NewSecret:     req.NewPassword,
		KeepToken:     middleware.TokenFromContext(c),
	})
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			// the session outlived its identity: an integrity fault, not a 404
			h.log.Error().Err(err).Str("identity_id", p.ID).Msg("password change for missing identity")
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

// Verify redeems an e-mail verification artifact.
//
// @Summary      Verify e-mail
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "Verification artifact"
// @Success      200    {object}  userResponse
// @Failure      400    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /auth/verify [get]
func (h *AuthHandler) Verify(c echo.Context) error {
	artifact := c.QueryParam("token")
	if artifact == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	identity, err := h.authService.VerifyEmail(c.Request().Context(), artifact)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: identity})
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	return ck
}
