package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/travel-admin/internal/admin/crm"
	admindashboard "finitefield.org/travel-admin/internal/admin/dashboard"
	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/observability"
	dashboardtpl "finitefield.org/travel-admin/internal/admin/templates/dashboard"
	"finitefield.org/travel-admin/internal/admin/templates/layout"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Pool      *crm.Pool
	Dashboard []admindashboard.Option
	Now       func() time.Time
}

// Handlers exposes HTTP handlers for admin UI pages and fragments.
type Handlers struct {
	pool      *crm.Pool
	dashboard []admindashboard.Option
	now       func() time.Time
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	if deps.Pool == nil {
		panic("ui: registry pool is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handlers{
		pool:      deps.Pool,
		dashboard: deps.Dashboard,
		now:       deps.Now,
	}
}

type registryContextKey struct{}

// registry returns the stores of the signed-in principal.
func (h *Handlers) registry(ctx context.Context) (*crm.Registry, error) {
	if reg, ok := ctx.Value(registryContextKey{}).(*crm.Registry); ok && reg != nil {
		return reg, nil
	}
	return h.pool.For(principal(ctx))
}

// principal keys the registry pool. Anonymous callers share one empty key.
func principal(ctx context.Context) string {
	user, ok := custommw.UserFromContext(ctx)
	if !ok {
		return ""
	}
	return crm.PrincipalKey(user.UID, user.Email)
}

func (h *Handlers) dashboardService(ctx context.Context) (*admindashboard.Service, error) {
	reg, err := h.registry(ctx)
	if err != nil {
		return nil, err
	}
	return admindashboard.NewService(reg, h.dashboard...), nil
}

// Dashboard refreshes every visible module and renders the overview.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visible := visibleModules(ctx)
	svc, err := h.dashboardService(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("dashboard: registry unavailable", zap.Error(err))
		http.Error(w, "Dashboard is unavailable.", http.StatusInternalServerError)
		return
	}
	if err := svc.Refresh(ctx, visible); err != nil {
		observability.FromContext(ctx).Warn("dashboard: refresh incomplete", zap.Error(err))
	}
	overview, err := svc.Overview(visible)
	if err != nil {
		observability.FromContext(ctx).Error("dashboard: overview failed", zap.Error(err))
		http.Error(w, "Dashboard is unavailable.", http.StatusInternalServerError)
		return
	}
	data := dashboardtpl.BuildPageData(custommw.BasePathFromContext(ctx), overview)
	h.renderPage(w, r, "Dashboard", dashboardtpl.Page(data), http.StatusOK)
}

// DashboardCards renders the polled cards fragment.
func (h *Handlers) DashboardCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visible := visibleModules(ctx)
	svc, err := h.dashboardService(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("dashboard: registry unavailable", zap.Error(err))
		http.Error(w, "Dashboard is unavailable.", http.StatusInternalServerError)
		return
	}
	if err := svc.Refresh(ctx, visible); err != nil {
		observability.FromContext(ctx).Warn("dashboard: refresh incomplete", zap.Error(err))
	}
	overview, err := svc.Overview(visible)
	if err != nil {
		observability.FromContext(ctx).Error("dashboard: overview failed", zap.Error(err))
		http.Error(w, "Dashboard is unavailable.", http.StatusInternalServerError)
		return
	}
	data := dashboardtpl.CardsFragmentPayload(custommw.BasePathFromContext(ctx), overview, nil)
	renderFragment(w, r, dashboardtpl.CardsFragment(data), http.StatusOK)
}

func (h *Handlers) definitions() []crm.Definition {
	return h.pool.Definitions()
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, title string, content templ.Component, status int) {
	data := layout.BuildPageData(r.Context(), title, h.definitions())
	templ.Handler(layout.Page(data, content), templ.WithStatus(status)).ServeHTTP(w, r)
}

func renderFragment(w http.ResponseWriter, r *http.Request, component templ.Component, status int) {
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

// visibleModules filters modules by the caller's view capability.
func visibleModules(ctx context.Context) func(crm.Definition) bool {
	return func(def crm.Definition) bool {
		return custommw.Can(ctx, def.ViewCapability)
	}
}
