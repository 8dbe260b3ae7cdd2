package crm

import (
	"context"
	"slices"
	"strings"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
)

// LeadWorkflow applies pipeline changes to leads as partial updates through the leads store.
type LeadWorkflow struct {
	store *collection.Store[Lead]
	now   func() time.Time
}

// NewLeadWorkflow binds the workflow to store. now defaults to time.Now.
func NewLeadWorkflow(store *collection.Store[Lead], now func() time.Time) *LeadWorkflow {
	if now == nil {
		now = time.Now
	}
	return &LeadWorkflow{store: store, now: now}
}

// ChangeStage moves a lead along the pipeline. Won and lost close the lead; any other stage reopens it.
func (w *LeadWorkflow) ChangeStage(ctx context.Context, id, stage string) (Lead, error) {
	stage = strings.ToLower(strings.TrimSpace(stage))
	if !slices.Contains(LeadStages, stage) {
		return Lead{}, &InputError{Field: "stage", Message: "unknown stage " + stage}
	}
	status := "open"
	if stage == "won" || stage == "lost" {
		status = "closed"
	}
	return w.store.UpdateByID(ctx, id, map[string]any{"stage": stage, "status": status})
}

// SetStatus changes the follow-up status without moving the stage.
func (w *LeadWorkflow) SetStatus(ctx context.Context, id, status string) (Lead, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !slices.Contains(LeadStatuses, status) {
		return Lead{}, &InputError{Field: "status", Message: "unknown status " + status}
	}
	return w.store.UpdateByID(ctx, id, map[string]any{"status": status})
}

// AddRemark appends a plain-text remark to the lead as the API holds it now, so remarks added
// elsewhere since the last load are kept. The full list is sent so the API replaces it atomically.
func (w *LeadWorkflow) AddRemark(ctx context.Context, id, author, text string) (Lead, error) {
	text = PlainText(text)
	if text == "" {
		return Lead{}, &InputError{Field: "remark", Message: "remark is empty"}
	}
	lead, err := w.current(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	remarks := append(slices.Clone(lead.Remarks), Remark{
		Text:      text,
		Author:    strings.TrimSpace(author),
		CreatedAt: w.now().UTC(),
	})
	return w.store.UpdateByID(ctx, id, map[string]any{"remarks": remarks})
}

// ScheduleReminder sets the follow-up reminder. It must be in the future.
func (w *LeadWorkflow) ScheduleReminder(ctx context.Context, id string, at time.Time, note string) (Lead, error) {
	if at.IsZero() || !at.After(w.now()) {
		return Lead{}, &InputError{Field: "reminder", Message: "reminder must be in the future"}
	}
	reminder := Reminder{At: at.UTC(), Note: PlainText(note)}
	return w.store.UpdateByID(ctx, id, map[string]any{"reminder": reminder})
}

// CompleteReminder marks the current reminder done.
func (w *LeadWorkflow) CompleteReminder(ctx context.Context, id string) (Lead, error) {
	lead, err := w.current(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if lead.Reminder == nil {
		return Lead{}, &InputError{Field: "reminder", Message: "lead has no reminder"}
	}
	reminder := *lead.Reminder
	reminder.Done = true
	return w.store.UpdateByID(ctx, id, map[string]any{"reminder": reminder})
}

// DueReminders returns open leads whose reminder is due at now, earliest first.
func (w *LeadWorkflow) DueReminders(now time.Time) []Lead {
	return DueReminders(w.store.Items(), now)
}

// DueReminders filters leads with an undone reminder at or before now.
func DueReminders(leads []Lead, now time.Time) []Lead {
	due := make([]Lead, 0)
	for _, l := range leads {
		if l.Reminder == nil || l.Reminder.Done || l.Closed() {
			continue
		}
		if !l.Reminder.At.After(now) {
			due = append(due, l)
		}
	}
	slices.SortStableFunc(due, func(a, b Lead) int {
		return a.Reminder.At.Compare(b.Reminder.At)
	})
	return due
}

// current re-reads the lead before a read-modify-write.
func (w *LeadWorkflow) current(ctx context.Context, id string) (Lead, error) {
	return w.store.GetByID(ctx, id)
}
