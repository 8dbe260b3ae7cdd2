package search

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	adminsearch "finitefield.org/travel-admin/internal/admin/search"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

// PageData represents the payload for the full search page.
type PageData struct {
	Term          string
	Action        string
	TableEndpoint string
	Results       ResultsData
}

// ResultsData represents the payload for the results fragment.
type ResultsData struct {
	Term         string
	Error        string
	EmptyMessage string
	Summary      Summary
	Groups       []ResultGroupView
}

// Summary captures high level stats for the current query.
type Summary struct {
	TotalHits int
	Duration  string
}

// ResultGroupView groups hits by module.
type ResultGroupView struct {
	Key    string
	Label  string
	Href   string
	Failed string
	Hits   []HitView
}

// HitView is one matching record.
type HitView struct {
	ID       string
	Title    []helpers.HighlightSegment
	Subtitle string
	Href     string
}

// BuildPageData prepares the search page payload.
func BuildPageData(basePath string, results ResultsData) PageData {
	return PageData{
		Term:          results.Term,
		Action:        helpers.JoinPath(basePath, "search"),
		TableEndpoint: helpers.JoinPath(basePath, "search", "results"),
		Results:       results,
	}
}

// ResultsPayload converts a result set. err is shown instead of the groups.
func ResultsPayload(basePath string, set adminsearch.ResultSet, err error) ResultsData {
	out := ResultsData{
		Term: set.Term,
		Summary: Summary{
			TotalHits: set.Total,
			Duration:  formatDuration(set.Duration),
		},
	}
	if err != nil {
		out.Error = err.Error()
		return out
	}
	switch {
	case strings.TrimSpace(set.Term) == "":
		out.EmptyMessage = "Type a name, email, phone or reference to search every module."
	case len(set.Groups) == 0:
		out.EmptyMessage = fmt.Sprintf("Nothing matches %q.", set.Term)
	}
	for _, g := range set.Groups {
		group := ResultGroupView{
			Key:    g.Key,
			Label:  g.Label,
			Href:   helpers.JoinPath(basePath, g.Key) + "?q=" + url.QueryEscape(set.Term),
			Failed: g.Failed,
		}
		for _, row := range g.Hits {
			title := row.Title
			if title == "" {
				title = row.ID
			}
			hit := HitView{
				ID:    row.ID,
				Title: helpers.HighlightSegments(title, set.Term),
				Href:  helpers.JoinPath(basePath, g.Key) + "?q=" + url.QueryEscape(title),
			}
			cells := make([]string, 0, len(row.Cells))
			for i, c := range row.Cells {
				if i == 0 || c.Text == "" || c.Text == "-" {
					continue
				}
				cells = append(cells, c.Text)
			}
			hit.Subtitle = strings.Join(cells, " · ")
			group.Hits = append(group.Hits, hit)
		}
		out.Groups = append(out.Groups, group)
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Millisecond {
		return "<1ms"
	}
	return d.Round(time.Millisecond).String()
}
