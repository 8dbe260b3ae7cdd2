package search

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/travel-admin/internal/admin/crm"
	adminsearch "finitefield.org/travel-admin/internal/admin/search"
)

func TestResultsHighlightMatches(t *testing.T) {
	t.Parallel()

	set := adminsearch.ResultSet{
		Term:     "goa",
		Total:    2,
		Duration: 1500 * time.Microsecond,
		Groups: []adminsearch.ResultGroup{
			{Key: "customers", Label: "Customers", Hits: []crm.Row{
				{ID: "cus-1", Title: "Goa Tours Pvt", Cells: []crm.Cell{{Text: "Goa Tours Pvt"}, {Text: "ops@goatours.in"}, {Text: "-"}}},
			}},
			{Key: "bookings", Label: "Bookings", Failed: "API unavailable"},
		},
	}

	data := BuildPageData("/admin", ResultsPayload("/admin", set, nil))
	require.Equal(t, "/admin/search/results", data.TableEndpoint)
	require.Equal(t, "2ms", data.Results.Summary.Duration)

	var buf bytes.Buffer
	require.NoError(t, Page(data).Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	require.Equal(t, "goa", doc.Find(`input[name="q"]`).AttrOr("value", ""))
	hit := doc.Find(`[data-module="customers"] li[data-id="cus-1"]`)
	require.Equal(t, "Goa", hit.Find("mark").Text())
	require.Equal(t, "ops@goatours.in", hit.Find("small").Text())
	require.Equal(t, "/admin/customers?q=Goa+Tours+Pvt", hit.Find("a").AttrOr("href", ""))
	require.Equal(t, "API unavailable", doc.Find(`[data-module="bookings"] .alert`).Text())
	require.Equal(t, "2 results in 2ms", doc.Find(".search__summary").Text())
}

func TestResultsEmptyAndError(t *testing.T) {
	t.Parallel()

	empty := ResultsPayload("/admin", adminsearch.ResultSet{}, nil)
	require.Contains(t, empty.EmptyMessage, "search every module")

	none := ResultsPayload("/admin", adminsearch.ResultSet{Term: "zanzibar"}, nil)
	require.Equal(t, `Nothing matches "zanzibar".`, none.EmptyMessage)

	failed := ResultsPayload("/admin", adminsearch.ResultSet{Term: "x"}, errors.New("search service not configured"))
	var buf bytes.Buffer
	require.NoError(t, Results(failed).Render(context.Background(), &buf))
	require.Contains(t, buf.String(), "search service not configured")
}
