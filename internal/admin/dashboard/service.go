package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// ErrNotConfigured indicates the dashboard service dependency has not been provided.
var ErrNotConfigured = errors.New("dashboard service not configured")

const (
	defaultConcurrency = 4
	defaultReminders   = 8
)

// Card summarises one module store.
type Card struct {
	Key         string
	Label       string
	Count       int
	Loading     bool
	Error       string
	RefreshedAt time.Time
}

// StageCount is the number of loaded leads in a pipeline stage.
type StageCount struct {
	Stage string
	Count int
}

// Reminder is a lead follow-up that is due.
type Reminder struct {
	LeadID   string
	LeadName string
	Note     string
	At       time.Time
}

// Overview is the dashboard payload.
type Overview struct {
	Cards        []Card
	Pipeline     []StageCount
	DueReminders []Reminder
	GeneratedAt  time.Time
}

// Filter selects the modules a staff member may see.
type Filter func(crm.Definition) bool

// Service builds dashboard summaries from the registry stores.
type Service struct {
	registry    *crm.Registry
	now         func() time.Time
	concurrency int
}

// Option customises Service.
type Option func(*Service)

// WithClock overrides the clock used for due reminders.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConcurrency caps how many modules Refresh loads at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService binds the dashboard to registry.
func NewService(registry *crm.Registry, opts ...Option) *Service {
	s := &Service{registry: registry, now: time.Now, concurrency: defaultConcurrency}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Refresh loads the first page of every visible module. A failing module does not stop the others;
// every failure is returned joined and is also visible on its card.
func (s *Service) Refresh(ctx context.Context, visible Filter) error {
	if s == nil || s.registry == nil {
		return ErrNotConfigured
	}
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, m := range s.registry.Modules() {
		def := m.Definition()
		if visible != nil && !visible(def) {
			continue
		}
		g.Go(func() error {
			if _, err := m.Load(ctx, viewquery.NewState(def.PageSize)); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", def.Key, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Overview summarises the current store states without issuing requests.
func (s *Service) Overview(visible Filter) (Overview, error) {
	if s == nil || s.registry == nil {
		return Overview{}, ErrNotConfigured
	}
	now := s.now()
	out := Overview{GeneratedAt: now}
	leadsVisible := false
	for _, m := range s.registry.Modules() {
		def := m.Definition()
		if visible != nil && !visible(def) {
			continue
		}
		if def.Key == "leads" {
			leadsVisible = true
		}
		status := m.Status()
		out.Cards = append(out.Cards, Card{
			Key:         def.Key,
			Label:       def.Label,
			Count:       m.Count(),
			Loading:     status.Loading(),
			Error:       status.Error,
			RefreshedAt: status.RefreshedAt,
		})
	}
	if !leadsVisible {
		return out, nil
	}

	leads := s.registry.Leads().Items()
	counts := make(map[string]int, len(crm.LeadStages))
	for _, l := range leads {
		counts[l.Stage]++
	}
	for _, stage := range crm.LeadStages {
		out.Pipeline = append(out.Pipeline, StageCount{Stage: stage, Count: counts[stage]})
	}
	for _, l := range crm.DueReminders(leads, now) {
		if len(out.DueReminders) == defaultReminders {
			break
		}
		out.DueReminders = append(out.DueReminders, Reminder{
			LeadID:   l.ID,
			LeadName: l.Name,
			Note:     l.Reminder.Note,
			At:       l.Reminder.At,
		})
	}
	return out, nil
}
