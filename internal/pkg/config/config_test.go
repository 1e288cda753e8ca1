package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "0123456789abcdef0123",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %v", cfg.Auth.TokenTTL)
	}
	if !cfg.Auth.RevokeOnPasswordChange {
		t.Fatal("expected revoke-on-change enabled by default")
	}
	if cfg.Auth.CookieName != "token" {
		t.Fatalf("unexpected cookie name %q", cfg.Auth.CookieName)
	}
	if len(cfg.Gate.AdminPrefixes) != 2 || cfg.Gate.AdminPrefixes[0] != "/admin" {
		t.Fatalf("unexpected admin prefixes %v", cfg.Gate.AdminPrefixes)
	}
	if len(cfg.Gate.MemberPrefixes) != 6 {
		t.Fatalf("unexpected member prefixes %v", cfg.Gate.MemberPrefixes)
	}
	if cfg.Mongo.MaxPoolSize != 50 || cfg.Redis.Password != "" {
		t.Fatalf("unexpected store defaults %+v %+v", cfg.Mongo, cfg.Redis)
	}
	if cfg.Notify.VerifyBaseURL != "http://localhost:8080/auth/verify" {
		t.Fatalf("unexpected verify url %q", cfg.Notify.VerifyBaseURL)
	}
	if cfg.Mongo.SessionRetention != 168*time.Hour {
		t.Fatalf("unexpected retention %v", cfg.Mongo.SessionRetention)
	}
	if cfg.IsProduction() {
		t.Fatal("default env must not be production")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":                     "0123456789abcdef0123",
		"ENV":                            "Production",
		"AUTH_TOKEN_TTL":                 "2h",
		"AUTH_REVOKE_ON_PASSWORD_CHANGE": "false",
		"GATE_ADMIN_PREFIXES":            "/settings",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("expected 2h, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.RevokeOnPasswordChange {
		t.Fatal("expected revoke-on-change disabled")
	}
	if len(cfg.Gate.AdminPrefixes) != 1 || cfg.Gate.AdminPrefixes[0] != "/settings" {
		t.Fatalf("unexpected admin prefixes %v", cfg.Gate.AdminPrefixes)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
}

func TestLoadFrom_SecretRequired(t *testing.T) {
	if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
	if _, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "short"})); err == nil {
		t.Fatal("expected error for short JWT_SECRET")
	}
}
