// @title           CRM Back Office API
// @version         1.0
// @description     Authentication, session ledger and role-based authorization for the CRM back office.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldline/crm-backoffice/internal/api"
	"github.com/fieldline/crm-backoffice/internal/api/handler"
	"github.com/fieldline/crm-backoffice/internal/api/middleware"
	"github.com/fieldline/crm-backoffice/internal/core/domain"
	"github.com/fieldline/crm-backoffice/internal/core/ports"
	"github.com/fieldline/crm-backoffice/internal/core/service"
	"github.com/fieldline/crm-backoffice/internal/core/token"
	mongodb "github.com/fieldline/crm-backoffice/internal/infrastructure/db/mongo"
	redisdb "github.com/fieldline/crm-backoffice/internal/infrastructure/db/redis"
	"github.com/fieldline/crm-backoffice/internal/infrastructure/notify"
	"github.com/fieldline/crm-backoffice/internal/infrastructure/queue"
	"github.com/fieldline/crm-backoffice/internal/pkg/config"
	"github.com/fieldline/crm-backoffice/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "crm-api",
		Env:     cfg.Env,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	identityRepo := mongodb.NewIdentityRepository(db)
	sessionRepo := mongodb.NewSessionRepository(db, cfg.Mongo.SessionRetention)
	if err := identityRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create identity indexes")
	}
	if err := sessionRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create session indexes")
	}

	probes := map[string]handler.Probe{
		"mongodb": mongodb.Probe(mongoClient),
	}

	// The revocation cache is optional; the ledger answers alone without it.
	var cache ports.RevocationCache
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, running without revocation cache")
		} else {
			defer func() { _ = rdb.Close() }()
			cache = redisdb.NewRevocationCache(rdb)
			probes["redis"] = redisdb.Probe(rdb)
		}
	}

	// --- Core ---
	codec := token.NewCodec(cfg.JWTSecret, cfg.Auth.TokenTTL)
	matrix := domain.DefaultPermissionMatrix()
	ledger := service.NewSessionLedger(sessionRepo, cache, logger.Component("ledger"))

	sender, err := notify.NewLogSender(cfg.Notify.VerifyBaseURL, logger.Component("notify"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid notification settings")
	}
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, sender, logger.Component("queue"))
	dispatcher.Start(ctx)

	authService := service.NewAuthService(service.AuthDependencies{
		Identities: identityRepo,
		Ledger:     ledger,
		Codec:      codec,
		Matrix:     matrix,
		Notifier:   dispatcher,
	}, service.AuthConfig{
		BcryptCost:             cfg.Auth.BcryptCost,
		MinPasswordLength:      cfg.Auth.MinPasswordLength,
		VerificationTTL:        cfg.Auth.VerificationTTL,
		RevokeOnPasswordChange: cfg.Auth.RevokeOnPasswordChange,
		Bootstrap: service.BootstrapAdmin{
			Name:     cfg.Auth.BootstrapName,
			Email:    cfg.Auth.BootstrapEmail,
			Password: cfg.Auth.BootstrapPassword,
		},
	}, logger.Component("auth"))
	identityService := service.NewIdentityService(identityRepo, ledger, logger.Component("identity"))
	validator := service.NewRequestValidator(codec, ledger, matrix, cfg.Auth.CookieName, logger.Component("validator"))

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Auth:       authService,
		Identities: identityService,
		Validator:  validator,
		Gate: middleware.NewGate(codec, middleware.GateConfig{
			LoginPath:      cfg.Gate.LoginPath,
			LandingPath:    cfg.Gate.LandingPath,
			CookieName:     cfg.Auth.CookieName,
			MemberPrefixes: cfg.Gate.MemberPrefixes,
			AdminPrefixes:  cfg.Gate.AdminPrefixes,
		}),
		Cookie: handler.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure || cfg.IsProduction()},
		Probes: probes,
	}, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http listen")
		}
	}()

	waitForShutdown(log)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

func waitForShutdown(log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")
}
