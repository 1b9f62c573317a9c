package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	adapthttp "orangemon/internal/adapter/http"
	"orangemon/internal/adapter/memory"
	"orangemon/internal/adapter/portal"
	"orangemon/internal/adapter/postgres"
	"orangemon/internal/app"
	"orangemon/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Env)

	dueLoc, err := cfg.DueDateLocation()
	if err != nil {
		logger.Error("invalid due date time zone", "tz", cfg.DueDateTimeZone, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := portal.New(nil, cfg.Portal.BaseURL, cfg.Portal.Username, cfg.Portal.Password, logger)
	collector := app.NewCollectorService(client, dueLoc, logger)

	var recorder *postgres.DB
	if cfg.DatabaseURL != "" {
		recorder, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("db open", "error", err)
			os.Exit(1)
		}
		defer func() { _ = recorder.Close() }()
	}

	coordinator := newCoordinator(collector, recorder, cfg, logger)

	var authSvc *app.AuthService
	if cfg.Admin.Password != "" {
		authSvc, err = app.NewAuthService(cfg.Admin.Username, cfg.Admin.Password, memory.NewSessionRepo())
		if err != nil {
			logger.Error("auth setup", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("ADMIN_PASSWORD not set; API is unauthenticated")
	}

	oidcConfig, err := setupOIDC(ctx, cfg)
	if err != nil {
		logger.Error("oidc setup", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := coordinator.Run(ctx); err != nil {
			logger.Error("initial poll failed", "error", err)
			stop()
		}
	}()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: adapthttp.New(coordinator, client, authSvc, oidcConfig, dueLoc, logger).Handler(),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}

func newCoordinator(collector *app.CollectorService, recorder *postgres.DB, cfg *config.Config, logger *slog.Logger) *app.Coordinator {
	if recorder != nil {
		return app.NewCoordinator(collector, recorder, cfg.PollInterval, logger)
	}
	return app.NewCoordinator(collector, nil, cfg.PollInterval, logger)
}

func setupOIDC(ctx context.Context, cfg *config.Config) (adapthttp.OIDCConfig, error) {
	if cfg.OIDC.Issuer == "" {
		return adapthttp.OIDCConfig{}, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.OIDC.Issuer)
	if err != nil {
		return adapthttp.OIDCConfig{}, err
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

func setupLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
