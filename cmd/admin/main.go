package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/config"
	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/httpserver"
	"finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/observability"
	"finitefield.org/travel-admin/internal/admin/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := collection.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout})
	if err != nil {
		return fmt.Errorf("crm client: %w", err)
	}
	pool, err := crm.NewPool(client, crm.WithRegistryOptions(
		crm.WithOverrides(overrides(cfg.Modules)),
		crm.WithStoreOptions(collection.WithLogger(logger)),
	))
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(session.Config{
		HashKey:      sessionKey(cfg, logger),
		BlockKey:     []byte(cfg.Session.BlockKey),
		CookiePath:   cfg.HTTP.BasePath,
		CookieSecure: !cfg.Local(),
	})
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	authenticator, err := buildAuthenticator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:           cfg.HTTP.Address,
		BasePath:          cfg.HTTP.BasePath,
		Environment:       cfg.Environment,
		Logger:            logger,
		Pool:              pool,
		Sessions:          sessions,
		Authenticator:     authenticator,
		FirebaseWebAPIKey: cfg.Firebase.WebAPIKey,
		APISessionCookie:  cfg.API.SessionCookie,
		CSRFCookieSecure:  !cfg.Local(),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("admin server listening",
		zap.String("addr", cfg.HTTP.Address),
		zap.String("base_path", cfg.HTTP.BasePath),
		zap.String("api", cfg.API.BaseURL),
		zap.String("environment", cfg.Environment))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("admin server stopped")
	return nil
}

func overrides(modules map[string]config.ModuleConfig) map[string]crm.Override {
	if len(modules) == 0 {
		return nil
	}
	out := make(map[string]crm.Override, len(modules))
	for key, m := range modules {
		out[key] = crm.Override{
			Path:        m.Path,
			PageSubpath: m.PageSubpath,
			PageSize:    m.PageSize,
			Paging:      m.Paging,
		}
	}
	return out
}

// sessionKey returns the configured hash key. Local runs without one get a random key, so sessions
// do not survive a restart.
func sessionKey(cfg config.Config, logger *zap.Logger) []byte {
	if cfg.Session.HashKey != "" {
		return []byte(cfg.Session.HashKey)
	}
	logger.Warn("ADMIN_SESSION_HASH_KEY not set; using an ephemeral key")
	return securecookie.GenerateRandomKey(32)
}

// buildAuthenticator verifies Firebase ID tokens. Only local environments may run without a project,
// in which case any bearer token is accepted.
func buildAuthenticator(ctx context.Context, cfg config.Config, logger *zap.Logger) (middleware.Authenticator, error) {
	projectID := cfg.Firebase.ProjectID
	if projectID == "" {
		if !cfg.Local() {
			return nil, errors.New("FIREBASE_PROJECT_ID is required outside local environments")
		}
		logger.Warn("FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return middleware.DefaultAuthenticator(), nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	app, err := firebase.NewApp(initCtx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(initCtx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}

	logger.Info("Firebase authenticator enabled", zap.String("project", projectID))
	return middleware.NewFirebaseAuthenticator(client), nil
}
