package ui

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/observability"
	adminsearch "finitefield.org/travel-admin/internal/admin/search"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
	searchtpl "finitefield.org/travel-admin/internal/admin/templates/search"
)

var errSearchFailed = errors.New("Search failed. Try again in a moment.")

// SearchPage renders the global search page with the initial results.
func (h *Handlers) SearchPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	basePath := custommw.BasePathFromContext(ctx)
	results, _ := h.runSearch(r)
	payload := searchtpl.BuildPageData(basePath, results)
	h.renderPage(w, r, "Search", searchtpl.Page(payload), http.StatusOK)
}

// SearchResults renders the results fragment for htmx requests.
func (h *Handlers) SearchResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.runSearch(r)
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	pushURL := helpers.JoinPath(custommw.BasePathFromContext(r.Context()), "search")
	if results.Term != "" {
		pushURL += "?" + url.Values{"q": {results.Term}}.Encode()
	}
	w.Header().Set("HX-Push-Url", pushURL)
	renderFragment(w, r, searchtpl.Results(results), status)
}

func (h *Handlers) runSearch(r *http.Request) (searchtpl.ResultsData, error) {
	ctx := r.Context()
	values := r.URL.Query()
	query := adminsearch.Query{Term: strings.TrimSpace(values.Get("q"))}
	if limit, err := strconv.Atoi(strings.TrimSpace(values.Get("limit"))); err == nil && limit > 0 {
		query.Limit = limit
	}

	set, err := h.searchFor(ctx, query)
	if err != nil {
		observability.FromContext(ctx).Warn("search: query failed", zap.String("term", query.Term), zap.Error(err))
		set = adminsearch.ResultSet{Term: query.Term}
		return searchtpl.ResultsPayload(custommw.BasePathFromContext(ctx), set, errSearchFailed), err
	}
	return searchtpl.ResultsPayload(custommw.BasePathFromContext(ctx), set, nil), nil
}

func (h *Handlers) searchFor(ctx context.Context, query adminsearch.Query) (adminsearch.ResultSet, error) {
	reg, err := h.registry(ctx)
	if err != nil {
		return adminsearch.ResultSet{}, err
	}
	return adminsearch.NewService(reg).Search(ctx, query, visibleModules(ctx))
}
