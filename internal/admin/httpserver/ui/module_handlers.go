package ui

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/crm"
	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/observability"
	modulestpl "finitefield.org/travel-admin/internal/admin/templates/modules"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

type moduleContextKey struct{}

// ResolveModule binds the {module} URL parameter to a registered module the user may view.
func (h *Handlers) ResolveModule(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg, err := h.registry(r.Context())
		if err != nil {
			observability.FromContext(r.Context()).Error("module: registry unavailable", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		m, err := reg.Module(chi.URLParam(r, "module"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if !custommw.Can(r.Context(), m.Definition().ViewCapability) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), registryContextKey{}, reg)
		ctx = context.WithValue(ctx, moduleContextKey{}, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireManage rejects mutations from users without the module's manage capability.
func RequireManage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, ok := moduleFromContext(r.Context())
		if !ok {
			http.NotFound(w, r)
			return
		}
		if !custommw.Can(r.Context(), m.Definition().ManageCapability) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func moduleFromContext(ctx context.Context) (crm.Module, bool) {
	m, ok := ctx.Value(moduleContextKey{}).(crm.Module)
	return m, ok && m != nil
}

// ModulePage loads the module and renders the full page.
func (h *Handlers) ModulePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	state := viewState(r, def)

	listing, err := m.Load(ctx, state)
	if err != nil {
		observability.FromContext(ctx).Warn("module: list failed", zap.String("module", def.Key), zap.Error(err))
	}
	saveView(ctx, def, listing)
	table := tableData(ctx, def, listing, err)
	h.renderPage(w, r, def.Label, modulestpl.Index(table), http.StatusOK)
}

// ModuleTable renders the table fragment. It only calls the API when the store has never loaded,
// a refresh is requested, or a server-paged module needs a different page.
func (h *Handlers) ModuleTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	state := viewState(r, def)

	listing := m.View(state)
	var err error
	if needsFetch(r, m, state, listing) {
		listing, err = m.Load(ctx, state)
		if err != nil {
			observability.FromContext(ctx).Warn("module: list failed", zap.String("module", def.Key), zap.Error(err))
		}
	}
	saveView(ctx, def, listing)
	table := tableData(ctx, def, listing, err)
	w.Header().Set("HX-Push-Url", table.PageURL())
	renderFragment(w, r, modulestpl.Table(table), http.StatusOK)
}

// ModuleDetail renders the detail panel of one record.
func (h *Handlers) ModuleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	detail, err := m.Detail(ctx, chi.URLParam(r, "id"))
	if err != nil {
		observability.FromContext(ctx).Warn("module: detail failed", zap.String("module", def.Key), zap.Error(err))
		renderFragment(w, r, modulestpl.Message(failureMessage(err), "danger"), failureStatus(err))
		return
	}
	renderFragment(w, r, modulestpl.DetailPanel(detailData(ctx, def, detail, "")), http.StatusOK)
}

// ModuleNew renders an empty create form.
func (h *Handlers) ModuleNew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	renderFragment(w, r, modulestpl.Form(formData(ctx, m.Definition(), "", nil)), http.StatusOK)
}

// ModuleCreate submits the create form.
func (h *Handlers) ModuleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	in, err := parseInput(r, def)
	if err != nil {
		http.Error(w, "The form could not be read.", http.StatusBadRequest)
		return
	}
	detail, err := m.Create(ctx, in)
	if err != nil {
		h.formFailure(w, r, def, "", in, err)
		return
	}
	setToast(w, def.Singular+" created.", "success", true)
	renderFragment(w, r, modulestpl.DetailPanel(detailData(ctx, def, detail, "")), http.StatusOK)
}

// ModuleEdit renders the edit form filled from the API.
func (h *Handlers) ModuleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	detail, err := m.Detail(ctx, chi.URLParam(r, "id"))
	if err != nil {
		observability.FromContext(ctx).Warn("module: detail failed", zap.String("module", def.Key), zap.Error(err))
		renderFragment(w, r, modulestpl.Message(failureMessage(err), "danger"), failureStatus(err))
		return
	}
	renderFragment(w, r, modulestpl.Form(formData(ctx, def, detail.ID, detail.Values)), http.StatusOK)
}

// ModuleUpdate submits the edit form.
func (h *Handlers) ModuleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	id := chi.URLParam(r, "id")
	in, err := parseInput(r, def)
	if err != nil {
		http.Error(w, "The form could not be read.", http.StatusBadRequest)
		return
	}
	detail, err := m.Update(ctx, id, in)
	if err != nil {
		h.formFailure(w, r, def, id, in, err)
		return
	}
	setToast(w, def.Singular+" saved.", "success", true)
	renderFragment(w, r, modulestpl.DetailPanel(detailData(ctx, def, detail, "")), http.StatusOK)
}

// ModuleDelete deletes a record, re-lists the module and returns the table.
func (h *Handlers) ModuleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	state := viewState(r, def)
	logger := observability.FromContext(ctx).With(zap.String("module", def.Key))

	if err := m.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		logger.Warn("module: delete failed", zap.Error(err))
		setToast(w, failureMessage(err), "danger", false)
		listing := m.View(state)
		renderFragment(w, r, modulestpl.Table(tableData(ctx, def, listing, err)), http.StatusOK)
		return
	}

	listing, err := m.Load(ctx, state)
	if err != nil {
		logger.Warn("module: re-list after delete failed", zap.Error(err))
	}
	saveView(ctx, def, listing)
	setToast(w, def.Singular+" deleted.", "success", false)
	renderFragment(w, r, modulestpl.Table(tableData(ctx, def, listing, err)), http.StatusOK)
}

func (h *Handlers) formFailure(w http.ResponseWriter, r *http.Request, def crm.Definition, id string, in crm.Input, err error) {
	ctx := r.Context()
	status := failureStatus(err)
	if status >= http.StatusInternalServerError {
		observability.FromContext(ctx).Warn("module: save failed", zap.String("module", def.Key), zap.Error(err))
	}
	data := formData(ctx, def, id, submittedValues(in))
	data.Error = failureMessage(err)
	data.Field = failureField(err)
	renderFragment(w, r, modulestpl.Form(data), status)
}

// viewState merges the request query over the view saved in the session.
func viewState(r *http.Request, def crm.Definition) viewquery.State {
	saved := viewquery.NewState(def.PageSize)
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if view, found := sess.View(def.Key); found {
			saved = view
		}
	}
	return saved.Merge(r.URL.Query())
}

func saveView(ctx context.Context, def crm.Definition, listing crm.Listing) {
	if sess, ok := custommw.SessionFromContext(ctx); ok {
		sess.SetView(def.Key, listing.Query)
	}
}

func needsFetch(r *http.Request, m crm.Module, state viewquery.State, current crm.Listing) bool {
	if strings.TrimSpace(r.URL.Query().Get("refresh")) != "" {
		return true
	}
	status := m.Status()
	if status.Loading() {
		return false
	}
	if status.Phase == collection.PhaseIdle || (status.Failed() && status.RefreshedAt.IsZero()) {
		return true
	}
	def := m.Definition()
	if def.Paging == viewquery.ServerPaging {
		return current.Page != state.Page || current.PageSize != state.PageSize
	}
	return false
}

func tableData(ctx context.Context, def crm.Definition, listing crm.Listing, err error) modulestpl.TableData {
	data := modulestpl.TableData{
		Module:    def,
		Listing:   listing,
		BasePath:  custommw.BasePathFromContext(ctx),
		CanManage: custommw.Can(ctx, def.ManageCapability),
	}
	if err != nil {
		data.Error = failureMessage(err)
	}
	return data
}

func detailData(ctx context.Context, def crm.Definition, detail crm.Detail, errMsg string) modulestpl.DetailData {
	return modulestpl.DetailData{
		Module:    def,
		Detail:    detail,
		BasePath:  custommw.BasePathFromContext(ctx),
		CanManage: custommw.Can(ctx, def.ManageCapability),
		CSRFToken: custommw.CSRFTokenFromContext(ctx),
		Error:     errMsg,
	}
}

func formData(ctx context.Context, def crm.Definition, id string, values map[string]string) modulestpl.FormData {
	return modulestpl.FormData{
		Module:    def,
		BasePath:  custommw.BasePathFromContext(ctx),
		ID:        id,
		Values:    values,
		CSRFToken: custommw.CSRFTokenFromContext(ctx),
	}
}
