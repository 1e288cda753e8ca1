package middleware

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fieldline/crm-backoffice/internal/api/metrics"
	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/token"
)

// GateOutcome is the coarse decision taken for a page navigation.
type GateOutcome string

const (
	GateAllow           GateOutcome = "allow"
	GateRedirectLogin   GateOutcome = "redirect_login"
	GateRedirectLanding GateOutcome = "redirect_landing"
)

// GateDecision carries the outcome and, for redirects, the target location.
type GateDecision struct {
	Outcome  GateOutcome
	Location string
}

// GateConfig lists the guarded path prefixes.
type GateConfig struct {
	LoginPath      string
	LandingPath    string
	CookieName     string
	MemberPrefixes []string
	AdminPrefixes  []string
}

type gateRule struct {
	prefix string
	roles  map[domain.Role]struct{}
}

// Gate checks whole page sections before any handler runs. It only decodes
// the token and never reads the session ledger, so a revoked but unexpired
// token still passes here and is stopped by the API validator.
type Gate struct {
	codec       *token.Codec
	rules       []gateRule
	loginPath   string
	landingPath string
	cookieName  string
}

// NewGate builds a gate. Member prefixes admit every role, admin prefixes
// only admins.
func NewGate(codec *token.Codec, cfg GateConfig) *Gate {
	g := &Gate{
		codec:       codec,
		loginPath:   cfg.LoginPath,
		landingPath: cfg.LandingPath,
		cookieName:  cfg.CookieName,
	}
	if g.loginPath == "" {
		g.loginPath = "/login"
	}
	if g.landingPath == "" {
		g.landingPath = "/dashboard"
	}

	everyone := map[domain.Role]struct{}{domain.RoleAdmin: {}, domain.RoleAgent: {}}
	admins := map[domain.Role]struct{}{domain.RoleAdmin: {}}
	for _, p := range cfg.MemberPrefixes {
		g.addRule(p, everyone)
	}
	for _, p := range cfg.AdminPrefixes {
		g.addRule(p, admins)
	}
	// longest prefix first
	sort.SliceStable(g.rules, func(i, j int) bool {
		return len(g.rules[i].prefix) > len(g.rules[j].prefix)
	})
	return g
}

func (g *Gate) addRule(prefix string, roles map[domain.Role]struct{}) {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	// a prefix listed more than once keeps only the roles every entry admits
	for i := range g.rules {
		if g.rules[i].prefix != prefix {
			continue
		}
		narrowed := make(map[domain.Role]struct{})
		for r := range g.rules[i].roles {
			if _, ok := roles[r]; ok {
				narrowed[r] = struct{}{}
			}
		}
		g.rules[i].roles = narrowed
		return
	}
	g.rules = append(g.rules, gateRule{prefix: prefix, roles: roles})
}

func (g *Gate) match(path string) *gateRule {
	for i := range g.rules {
		p := g.rules[i].prefix
		if path == p || strings.HasPrefix(path, p+"/") {
			return &g.rules[i]
		}
	}
	return nil
}

// Decide returns the decision for a navigation to path carrying rawToken.
func (g *Gate) Decide(path, rawToken string) GateDecision {
	rule := g.match(path)
	if rule == nil {
		return GateDecision{Outcome: GateAllow}
	}

	login := GateDecision{
		Outcome:  GateRedirectLogin,
		Location: g.loginPath + "?next=" + url.QueryEscape(path),
	}
	if rawToken == "" {
		return login
	}
	claims, err := g.codec.Decode(rawToken)
	if err != nil {
		return login
	}
	if _, ok := rule.roles[claims.Role]; !ok {
		return GateDecision{Outcome: GateRedirectLanding, Location: g.landingPath}
	}
	return GateDecision{Outcome: GateAllow}
}

// RouteGate applies g to every request and redirects instead of rendering
// an error body.
func RouteGate(g *Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			d := g.Decide(req.URL.Path, token.FromRequest(req, g.cookieName))
			if g.match(req.URL.Path) != nil {
				metrics.GateDecisionsTotal.WithLabelValues(string(d.Outcome)).Inc()
			}
			if d.Outcome == GateAllow {
				return next(c)
			}
			return c.Redirect(http.StatusFound, d.Location)
		}
	}
}
