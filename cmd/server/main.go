package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bomdev/auth-service/config"
	"github.com/bomdev/auth-service/internal/document"
	"github.com/bomdev/auth-service/internal/email"
	"github.com/bomdev/auth-service/internal/errorlog"
	"github.com/bomdev/auth-service/internal/health"
	"github.com/bomdev/auth-service/internal/infrastructure/postgres"
	ctxlog "github.com/bomdev/auth-service/internal/log"
	"github.com/bomdev/auth-service/internal/metrics"
	"github.com/bomdev/auth-service/internal/oauth/google"
	"github.com/bomdev/auth-service/internal/password"
	httptransport "github.com/bomdev/auth-service/internal/transport/http"
	"github.com/bomdev/auth-service/internal/transport/http/handler"
	"github.com/bomdev/auth-service/internal/transport/http/middleware"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/bomdev/auth-service/migrations"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, migrations.FS); err != nil {
		stop()
		pool.Close()
		log.Fatalf("migrate: %v", err)
	}
	if err := postgres.EnsureRoles(ctx, pool); err != nil {
		stop()
		pool.Close()
		log.Fatalf("roles: %v", err)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	roleRepo := postgres.NewRoleRepository(pool)
	projectRepo := postgres.NewProjectRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	errorLogRepo := postgres.NewErrorLogRepository(pool)

	// Core services
	tokens := usecase.NewTokenService(tokenRepo)
	roles := usecase.NewRoleResolver(roleRepo, userRepo, cfg.SuperUserRoles)
	hasher := password.NewBcrypt(cfg.BcryptCost)
	signer := usecase.NewAccessTokenSigner([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTTL())
	mailer := usecase.NewMailer(email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.MailFrom, logger), cfg.MailFrom, logger)
	recorder := errorlog.NewRecorder(errorLogRepo, logger)

	sessions := usecase.NewSessionIssuer(userRepo, projectRepo, tokens, roles, hasher, signer, mailer, usecase.SessionConfig{
		RefreshTTL: cfg.RefreshTTL(),
		OTPTTL:     cfg.OTPTTL(),
		OTPURL:     cfg.OTPURL,
	})

	registration := usecase.NewRegistrationOrchestrator(userRepo, projectRepo, roles, tokens, hasher, document.DefaultRegistry(), mailer, usecase.RegistrationConfig{
		RequireEmailConfirmation: cfg.RequireEmailConfirmation,
		ConfirmationTTL:          cfg.EmailConfirmationTTL(),
		ConfirmationURL:          cfg.EmailConfirmationURL,
	}, logger)

	reset := usecase.NewPasswordReset(userRepo, tokens, hasher, mailer, usecase.PasswordResetConfig{
		TTL:      cfg.PasswordResetTTL(),
		ResetURL: cfg.PasswordResetURL,
	}, logger)

	var providers []usecase.ExternalProvider
	if cfg.GoogleEnabled() {
		providers = append(providers, google.New(google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.GoogleCallbackURL,
		}))
	} else {
		logger.Warn("google login disabled: GOOGLE_CLIENT_ID is not set")
	}
	federation := usecase.NewFederationCoordinator(tokens, userRepo, projectRepo, roles, usecase.FederationConfig{
		StateTTL:             cfg.OAuthStateTTL(),
		RefreshTTL:           cfg.OAuthRefreshTTL(),
		BindOriginIP:         cfg.OAuthBindOriginIP,
		EnforceOriginIP:      cfg.OAuthEnforceOriginIP,
		AllowedRedirectHosts: cfg.OAuthAllowedRedirectHosts,
		AllowAnyRedirectHost: cfg.Env == "local",
	}, logger, providers...)

	handlers := httptransport.Handlers{
		Recorder:     recorder,
		Auth:         handler.NewAuthHandler(sessions, reset, recorder, logger),
		Registration: handler.NewRegistrationHandler(registration, recorder, logger),
		Federation:   handler.NewFederationHandler(federation, recorder, logger),
	}
	limiter := middleware.NewIPRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, health.Dependency{Name: "postgres", Pinger: pool})

	router, err := httptransport.NewRouter(logger, handlers, signer, limiter, cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
