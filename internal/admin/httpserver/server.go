package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/travel-admin/internal/admin/crm"
	admindashboard "finitefield.org/travel-admin/internal/admin/dashboard"
	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/httpserver/ui"
	"finitefield.org/travel-admin/internal/admin/observability"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/public"
)

const defaultRequestTimeout = 60 * time.Second

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address     string
	BasePath    string
	LoginPath   string
	Environment string
	Logger      *zap.Logger

	// Pool hands every signed-in principal its own module stores.
	Pool      *crm.Pool
	Dashboard []admindashboard.Option

	Sessions      custommw.SessionStore
	Authenticator custommw.Authenticator
	// FirebaseWebAPIKey lets the login page exchange email and password for an ID token.
	FirebaseWebAPIKey string
	// APISessionCookie names the CRM API session cookie forwarded with every API call.
	APISessionCookie string

	CSRFCookieName   string
	CSRFCookiePath   string
	CSRFCookieSecure bool
	CSRFHeaderName   string

	RequestTimeout time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Pool == nil {
		return nil, errors.New("httpserver: registry pool is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session store is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.RequestLogger(cfg.Logger))
	router.Use(observability.Recoverer)
	router.Use(chimw.Timeout(timeout))

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	basePath := normalizeBasePath(cfg.BasePath)
	loginPath := resolveLoginPath(basePath, cfg.LoginPath)

	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = custommw.DefaultAuthenticator()
	}

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: firstNonEmpty(cfg.CSRFCookiePath, basePath),
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	handlers := ui.NewHandlers(ui.Dependencies{
		Pool:      cfg.Pool,
		Dashboard: cfg.Dashboard,
	})

	mountAdminRoutes(router, basePath, routeOptions{
		Authenticator:    authenticator,
		LoginPath:        loginPath,
		WebAPIKey:        cfg.FirebaseWebAPIKey,
		CSRF:             csrfCfg,
		Sessions:         cfg.Sessions,
		Environment:      firstNonEmpty(cfg.Environment, "development"),
		APISessionCookie: cfg.APISessionCookie,
		UI:               handlers,
		Pool:             cfg.Pool,
	})

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      timeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}

type routeOptions struct {
	Authenticator    custommw.Authenticator
	LoginPath        string
	WebAPIKey        string
	CSRF             custommw.CSRFConfig
	Sessions         custommw.SessionStore
	Environment      string
	APISessionCookie string
	UI               *ui.Handlers
	Pool             *crm.Pool
}

func mountAdminRoutes(router chi.Router, base string, opts routeOptions) {
	authHandlers := newAuthHandlers(opts.Authenticator, newRedirectPolicy(base, opts.LoginPath), opts.WebAPIKey, opts.Pool)
	h := opts.UI

	router.Route(base, func(r chi.Router) {
		r.Use(custommw.RequestInfoMiddleware(base))
		r.Use(custommw.Environment(opts.Environment))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get("/login", authHandlers.LoginForm)
		r.Post("/login", authHandlers.LoginSubmit)
		r.Post("/logout", authHandlers.Logout)

		r.Group(func(r chi.Router) {
			r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))
			r.Use(custommw.APICredentials(opts.APISessionCookie))

			r.With(custommw.RequireCapability(rbac.CapDashboardOverview)).Get("/", h.Dashboard)
			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapDashboardOverview))
				RegisterFragment(r, "/fragments/cards", h.DashboardCards)
			})

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapProfileSelf))
				r.Get("/profile", h.ProfilePage)
				r.Post("/profile/views/reset", h.ProfileResetViews)
			})

			r.Group(func(r chi.Router) {
				r.Use(custommw.RequireCapability(rbac.CapSearchGlobal))
				r.Get("/search", h.SearchPage)
				RegisterFragment(r, "/search/results", h.SearchResults)
			})

			r.Route("/{module}", func(r chi.Router) {
				r.Use(h.ResolveModule)
				r.Get("/", h.ModulePage)
				RegisterFragment(r, "/table", h.ModuleTable)
				RegisterFragment(r, "/{id}", h.ModuleDetail)

				r.Group(func(r chi.Router) {
					r.Use(ui.RequireManage)
					RegisterFragment(r, "/new", h.ModuleNew)
					RegisterFragment(r, "/{id}/edit", h.ModuleEdit)
					r.Post("/", h.ModuleCreate)
					r.Post("/{id}", h.ModuleUpdate)
					r.Put("/{id}", h.ModuleUpdate)
					r.Delete("/{id}", h.ModuleDelete)
					r.Post("/{id}/delete", h.ModuleDelete)

					r.Post("/{id}/stage", h.LeadStage)
					r.Post("/{id}/remarks", h.LeadRemark)
					r.Post("/{id}/reminder", h.LeadReminder)
					r.Post("/{id}/reminder/done", h.LeadReminderDone)
				})
			})
		})
	})
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func resolveLoginPath(base string, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}
