package ui

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/travel-admin/internal/admin/crm"
	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/observability"
	modulestpl "finitefield.org/travel-admin/internal/admin/templates/modules"
)

const reminderInputLayout = "2006-01-02T15:04"

type leadAction func(ctx context.Context, w *crm.LeadWorkflow, id string, r *http.Request) (crm.Lead, error)

// LeadStage moves a lead to the submitted stage.
func (h *Handlers) LeadStage(w http.ResponseWriter, r *http.Request) {
	h.leadAction(w, r, "Stage updated.", func(ctx context.Context, wf *crm.LeadWorkflow, id string, r *http.Request) (crm.Lead, error) {
		return wf.ChangeStage(ctx, id, r.PostFormValue("stage"))
	})
}

// LeadRemark appends a remark authored by the signed-in staff member.
func (h *Handlers) LeadRemark(w http.ResponseWriter, r *http.Request) {
	h.leadAction(w, r, "Remark added.", func(ctx context.Context, wf *crm.LeadWorkflow, id string, r *http.Request) (crm.Lead, error) {
		author := ""
		if user, ok := custommw.UserFromContext(ctx); ok {
			author = user.Email
		}
		return wf.AddRemark(ctx, id, author, r.PostFormValue("remark"))
	})
}

// LeadReminder schedules the follow-up reminder.
func (h *Handlers) LeadReminder(w http.ResponseWriter, r *http.Request) {
	h.leadAction(w, r, "Follow-up scheduled.", func(ctx context.Context, wf *crm.LeadWorkflow, id string, r *http.Request) (crm.Lead, error) {
		raw := strings.TrimSpace(r.PostFormValue("at"))
		at, err := time.ParseInLocation(reminderInputLayout, raw, h.now().Location())
		if err != nil {
			if at, err = time.Parse(time.RFC3339, raw); err != nil {
				return crm.Lead{}, &crm.InputError{Field: "reminder", Message: "Enter the follow-up date and time."}
			}
		}
		return wf.ScheduleReminder(ctx, id, at, r.PostFormValue("note"))
	})
}

// LeadReminderDone completes the follow-up reminder.
func (h *Handlers) LeadReminderDone(w http.ResponseWriter, r *http.Request) {
	h.leadAction(w, r, "Follow-up completed.", func(ctx context.Context, wf *crm.LeadWorkflow, id string, _ *http.Request) (crm.Lead, error) {
		return wf.CompleteReminder(ctx, id)
	})
}

func (h *Handlers) leadAction(w http.ResponseWriter, r *http.Request, success string, action leadAction) {
	ctx := r.Context()
	m, ok := moduleFromContext(ctx)
	if !ok || m.Definition().Key != "leads" {
		http.NotFound(w, r)
		return
	}
	def := m.Definition()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "The form could not be read.", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	reg, err := h.registry(ctx)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lead, err := action(ctx, reg.LeadWorkflow(), id, r)
	if err != nil {
		status := failureStatus(err)
		if status >= http.StatusInternalServerError {
			observability.FromContext(ctx).Warn("leads: workflow failed", zap.String("lead", id), zap.Error(err))
		}
		current, found := reg.Leads().Lookup(id)
		if !found {
			renderFragment(w, r, modulestpl.Message(failureMessage(err), "danger"), status)
			return
		}
		renderFragment(w, r, modulestpl.DetailPanel(detailData(ctx, def, crm.LeadDetail(current), failureMessage(err))), status)
		return
	}

	setToast(w, success, "success", true)
	renderFragment(w, r, modulestpl.DetailPanel(detailData(ctx, def, crm.LeadDetail(lead), "")), http.StatusOK)
}
