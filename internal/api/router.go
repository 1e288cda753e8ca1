package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fieldline/crm-backoffice/docs"
	"github.com/fieldline/crm-backoffice/internal/api/handler"
	"github.com/fieldline/crm-backoffice/internal/api/middleware"
	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
)

// ResourceRoutes are the CRUD handlers of a collaborator resource. Nil
// handlers are not mounted.
type ResourceRoutes struct {
	List   echo.HandlerFunc
	Get    echo.HandlerFunc
	Create echo.HandlerFunc
	Update echo.HandlerFunc
	Delete echo.HandlerFunc
}

// Dependencies groups everything the router wires into routes.
type Dependencies struct {
	Auth       ports.AuthService
	Identities ports.IdentityService
	Validator  ports.RequestValidator
	Gate       *middleware.Gate
	Cookie     handler.CookieConfig
	Probes     map[string]handler.Probe

	// Resources mounts collaborator handlers under /api/<resource>.
	Resources map[domain.Resource]ResourceRoutes
	// Registry receives the HTTP metrics and backs /metrics. Nil means the
	// process-wide default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promConfig(deps.Registry)))
	if deps.Gate != nil {
		e.Use(middleware.RouteGate(deps.Gate))
	}

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Cookie, log)
	session := middleware.Authenticate(deps.Validator, deps.Cookie.Name)

	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/verify", authHandler.Verify)
	e.POST("/auth/logout", authHandler.Logout, session)
	e.GET("/auth/me", authHandler.Me, session)
	e.PUT("/auth/password", authHandler.ChangePassword, session)

	// --- Protected API ---
	apiGroup := e.Group("/api")
	guard := func(res domain.Resource, act domain.Action) echo.MiddlewareFunc {
		return middleware.Authorize(deps.Validator, deps.Cookie.Name, res, act)
	}

	usersHandler := handler.NewUsersHandler(deps.Identities)
	apiGroup.GET("/users", usersHandler.List, guard(domain.ResourceUsers, domain.ActionRead))
	apiGroup.GET("/users/:id", usersHandler.Get, guard(domain.ResourceUsers, domain.ActionRead))
	apiGroup.PATCH("/users/:id/role", usersHandler.UpdateRole, guard(domain.ResourceUsers, domain.ActionUpdate))
	apiGroup.DELETE("/users/:id/sessions", usersHandler.RevokeSessions, guard(domain.ResourceUsers, domain.ActionUpdate))

	for res, routes := range deps.Resources {
		mountResource(apiGroup, "/"+resourcePath(res), res, routes, guard)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Probes)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(promHandlerConfig(deps.Registry)))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func mountResource(g *echo.Group, path string, res domain.Resource, r ResourceRoutes, guard func(domain.Resource, domain.Action) echo.MiddlewareFunc) {
	if r.List != nil {
		g.GET(path, r.List, guard(res, domain.ActionRead))
	}
	if r.Get != nil {
		g.GET(path+"/:id", r.Get, guard(res, domain.ActionRead))
	}
	if r.Create != nil {
		g.POST(path, r.Create, guard(res, domain.ActionCreate))
	}
	if r.Update != nil {
		g.PUT(path+"/:id", r.Update, guard(res, domain.ActionUpdate))
	}
	if r.Delete != nil {
		g.DELETE(path+"/:id", r.Delete, guard(res, domain.ActionDelete))
	}
}

func promConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{Namespace: "crm", Subsystem: "http"}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func promHandlerConfig(reg *prometheus.Registry) echoprometheus.HandlerConfig {
	if reg != nil {
		return echoprometheus.HandlerConfig{Gatherer: reg}
	}
	return echoprometheus.HandlerConfig{}
}

// resourcePath maps a resource to its URL segment (site_visits → site-visits).
func resourcePath(res domain.Resource) string {
	return strings.ReplaceAll(string(res), "_", "-")
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
