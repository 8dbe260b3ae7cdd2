package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// ErrNotConfigured indicates the search service dependency has not been provided.
var ErrNotConfigured = errors.New("search service not configured")

const (
	defaultLimit = 5
	maxLimit     = 50
)

// Query represents incoming parameters for a search request.
type Query struct {
	Term  string
	Limit int
}

// ResultSet contains grouped search responses.
type ResultSet struct {
	Term     string
	Total    int
	Duration time.Duration
	Groups   []ResultGroup
}

// ResultGroup groups hits for one module.
type ResultGroup struct {
	Key    string
	Label  string
	Hits   []crm.Row
	Failed string
}

// Service searches the entities already held by the module stores.
type Service struct {
	registry *crm.Registry
	now      func() time.Time
}

// NewService binds the search to registry.
func NewService(registry *crm.Registry) *Service {
	return &Service{registry: registry, now: time.Now}
}

// Search matches q.Term against every visible module. Modules that never loaded successfully are
// fetched first; a module that fails to load is reported on its group and does not fail the search.
func (s *Service) Search(ctx context.Context, q Query, visible func(crm.Definition) bool) (ResultSet, error) {
	if s == nil || s.registry == nil {
		return ResultSet{}, ErrNotConfigured
	}
	start := s.now()
	term := strings.TrimSpace(q.Term)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	out := ResultSet{Term: term}
	if term == "" {
		return out, nil
	}
	for _, m := range s.registry.Modules() {
		def := m.Definition()
		if visible != nil && !visible(def) {
			continue
		}
		group := ResultGroup{Key: def.Key, Label: def.Label}
		if needsLoad(m) {
			if _, err := m.Load(ctx, viewquery.NewState(def.PageSize)); err != nil {
				group.Failed = collection.Message(err)
			}
		}
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("search: %w", err)
		}
		group.Hits = m.Search(term, limit)
		if len(group.Hits) == 0 && group.Failed == "" {
			continue
		}
		out.Total += len(group.Hits)
		out.Groups = append(out.Groups, group)
	}
	out.Duration = s.now().Sub(start)
	return out, nil
}

// needsLoad reports whether m never produced data: it was never loaded, or every load failed.
func needsLoad(m crm.Module) bool {
	status := m.Status()
	if status.Loading() {
		return false
	}
	return status.Phase == collection.PhaseIdle || (status.Failed() && status.RefreshedAt.IsZero())
}
