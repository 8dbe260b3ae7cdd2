package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/httpserver"
	"finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/session"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the admin server.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithAPISessionCookie names the CRM session cookie forwarded to the API.
func WithAPISessionCookie(name string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.APISessionCookie = name
	}
}

// Server is a running admin console backed by a FakeAPI.
type Server struct {
	*httptest.Server
	API  *FakeAPI
	Pool *crm.Pool
}

// NewServer constructs an httptest server running the admin HTTP stack against a fresh FakeAPI.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	api := NewFakeAPI(t)
	pool, err := crm.NewPool(api.Client(), crm.WithRegistryOptions(crm.WithNow(func() time.Time {
		return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	})))
	if err != nil {
		t.Fatalf("registry pool: %v", err)
	}
	sessions, err := session.NewManager(session.Config{
		CookieName: "admin_session",
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/admin",
		Environment:    "test",
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: "X-CSRF-Token",
		Authenticator:  middleware.DefaultAuthenticator(),
		Pool:           pool,
		Sessions:       sessions,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("httpserver: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &Server{Server: ts, API: api, Pool: pool}
}
