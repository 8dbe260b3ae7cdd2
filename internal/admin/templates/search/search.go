package search

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

// Page renders the search form and the initial results.
func Page(data PageData) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("section", "class", "search")
		h.Open("form", "method", "get", "action", data.Action, "role", "search", "class", "search__form",
			"hx-get", data.TableEndpoint,
			"hx-target", "#search-results",
			"hx-swap", "innerHTML",
			"hx-push-url", "true",
			"hx-trigger", "input changed delay:300ms from:find input, submit")
		h.Open("input", "type", "search", "name", "q", "value", data.Term, "placeholder", "Search all modules", "aria-label", "Search", "autofocus", "autofocus")
		h.Element("button", "Search", "type", "submit", "class", "btn btn--primary")
		h.Close("form")
		h.Open("div", "id", "search-results", "aria-live", "polite")
		h.Render(ctx, Results(data.Results))
		h.Close("div")
		h.Close("section")
	})
}

// Results renders the grouped hits.
func Results(data ResultsData) templ.Component {
	return helpers.Component(func(_ context.Context, h *helpers.HTML) {
		if data.Error != "" {
			h.Element("p", data.Error, "class", "alert alert--danger", "role", "alert")
			return
		}
		if data.EmptyMessage != "" {
			h.Element("p", data.EmptyMessage, "class", "search__empty")
			return
		}
		summary := strconv.Itoa(data.Summary.TotalHits) + " results"
		if data.Summary.Duration != "" {
			summary += " in " + data.Summary.Duration
		}
		h.Element("p", summary, "class", "search__summary")
		for _, g := range data.Groups {
			h.Open("section", "class", "search__group", "data-module", g.Key)
			h.Open("h2")
			h.Element("a", g.Label, "href", g.Href)
			h.Close("h2")
			if g.Failed != "" {
				h.Element("p", g.Failed, "class", "alert alert--warning")
			}
			h.Raw("<ul>")
			for _, hit := range g.Hits {
				h.Open("li", "data-id", hit.ID)
				h.Open("a", "href", hit.Href)
				for _, seg := range hit.Title {
					if seg.Match {
						h.Element("mark", seg.Text)
						continue
					}
					h.Text(seg.Text)
				}
				h.Close("a")
				if hit.Subtitle != "" {
					h.Element("small", hit.Subtitle)
				}
				h.Close("li")
			}
			h.Raw("</ul>")
			h.Close("section")
		}
	})
}
