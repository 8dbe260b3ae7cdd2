package modules

import (
	"bytes"
	"context"
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func bookingsDefinition() crm.Definition {
	return crm.Definition{
		Key:      "bookings",
		Label:    "Bookings",
		Singular: "Booking",
		Columns: []crm.ColumnInfo{
			{Key: "customer", Label: "Customer", Sortable: true},
			{Key: "status", Label: "Status", Sortable: true},
			{Key: "notes", Label: "Notes"},
		},
		Form: []crm.FormField{
			{Name: "customer", Label: "Customer", Type: crm.FieldText, Required: true},
			{Name: "status", Label: "Status", Type: crm.FieldSelect, Options: []string{"pending", "confirmed"}},
			{Name: "vip", Label: "VIP", Type: crm.FieldCheckbox},
			{Name: "voucher", Label: "Voucher", Type: crm.FieldFile},
		},
		Paging:   viewquery.ServerPaging,
		PageSize: 10,
	}
}

func sampleTable() TableData {
	state := viewquery.NewState(10)
	state.SetSearch("goa")
	state.SetSort(&viewquery.Sort{Key: "customer", Direction: viewquery.Asc})
	state.SetPage(2)
	return TableData{
		Module:   bookingsDefinition(),
		BasePath: "/admin",
		Listing: crm.Listing{
			Rows: []crm.Row{
				{ID: "bk-1", Title: "Asha", Cells: []crm.Cell{{Text: "Asha"}, {Text: "Confirmed", Tone: "success"}, {Text: "<b>late</b>"}}},
				{ID: "bk/2", Title: "Ravi", Cells: []crm.Cell{{Text: "Ravi"}, {Text: "Pending", Tone: "warning"}, {Text: "-"}}},
			},
			Page:       2,
			PageSize:   10,
			TotalItems: 12,
			TotalPages: 2,
			Query:      state,
			Status:     collection.Status{Phase: collection.PhaseSettled, Outcome: collection.OutcomeOK},
		},
		CanManage: true,
	}
}

func TestTableRendersRowsSortAndPager(t *testing.T) {
	t.Parallel()

	doc := render(t, Table(sampleTable()))

	table := doc.Find("#module-table")
	require.Equal(t, 1, table.Length())
	require.Equal(t, "crm:refresh from:body", table.AttrOr("hx-trigger", ""))

	require.Equal(t, 2, doc.Find("tbody tr.table__row").Length())
	require.Equal(t, "<b>late</b>", doc.Find("tbody tr").First().Find("td").Last().Text())
	require.Equal(t, "badge badge--success", doc.Find("tbody tr").First().Find("td span").AttrOr("class", ""))
	require.Equal(t, "/admin/bookings/bk%2F2", doc.Find(`tr[data-id="bk/2"]`).AttrOr("hx-get", ""))

	customer := doc.Find(`button[data-sort="customer"]`)
	require.Equal(t, "ascending", customer.Parent().AttrOr("aria-sort", ""))
	require.Contains(t, customer.Text(), "▲")
	sortURL, err := url.Parse(customer.AttrOr("hx-get", ""))
	require.NoError(t, err)
	require.Equal(t, "/admin/bookings/table", sortURL.Path)
	require.Equal(t, "-customer", sortURL.Query().Get("sort"))
	require.Equal(t, "goa", sortURL.Query().Get("q"))
	require.Empty(t, sortURL.Query().Get("page"), "changing the sort returns to page 1")

	require.Equal(t, 0, doc.Find(`th button[data-sort="notes"]`).Length(), "unsortable column has no control")

	require.Equal(t, "11-12 of 12", doc.Find(".pager__summary").Text())
	prev := doc.Find(`button[data-rel="prev"]`)
	_, disabled := prev.Attr("disabled")
	require.False(t, disabled)
	prevURL, err := url.Parse(prev.AttrOr("hx-get", ""))
	require.NoError(t, err)
	require.Empty(t, prevURL.Query().Get("page"))
	_, disabled = doc.Find(`button[data-rel="next"]`).Attr("disabled")
	require.True(t, disabled)
}

func TestTableShowsFailureAndEmptyState(t *testing.T) {
	t.Parallel()

	data := sampleTable()
	data.Listing.Rows = nil
	data.Listing.TotalItems = 0
	data.Listing.Status = collection.Status{Phase: collection.PhaseSettled, Outcome: collection.OutcomeFailed, Error: "API unavailable"}

	doc := render(t, Table(data))
	require.Equal(t, "API unavailable", doc.Find(".alert--danger").Text())
	require.Contains(t, doc.Find(".table__empty").Text(), `No bookings match "goa".`)
	require.Equal(t, "No records", doc.Find(".pager__summary").Text())
}

func TestIndexHidesCreateWithoutManage(t *testing.T) {
	t.Parallel()

	data := sampleTable()
	doc := render(t, Index(data))
	require.Equal(t, "goa", doc.Find(`input[name="q"]`).AttrOr("value", ""))
	require.Equal(t, "/admin/bookings/new", doc.Find(`button.btn--primary`).AttrOr("hx-get", ""))
	require.Equal(t, 1, doc.Find("#detail-panel").Length())

	data.CanManage = false
	doc = render(t, Index(data))
	require.Equal(t, 0, doc.Find(`button.btn--primary`).Length())
}

func TestFormRendersFieldsAndMultipart(t *testing.T) {
	t.Parallel()

	doc := render(t, Form(FormData{
		Module:    bookingsDefinition(),
		BasePath:  "/admin",
		ID:        "bk-1",
		Values:    map[string]string{"customer": "Asha", "status": "confirmed", "vip": "on", "voucher": "/uploads/v.pdf"},
		Error:     "Customer is required",
		Field:     "customer",
		CSRFToken: "tok",
	}))

	form := doc.Find("form")
	require.Equal(t, "/admin/bookings/bk-1", form.AttrOr("hx-post", ""))
	require.Equal(t, "multipart/form-data", form.AttrOr("hx-encoding", ""))
	require.Equal(t, "tok", doc.Find(`input[name="csrf_token"]`).AttrOr("value", ""))
	require.Equal(t, "Edit booking", doc.Find("h2").Text())
	require.Equal(t, "Customer is required", doc.Find(".alert").Text())
	require.True(t, doc.Find(`[data-field="customer"]`).HasClass("form__field--invalid"))
	require.Equal(t, "Asha", doc.Find(`input[name="customer"]`).AttrOr("value", ""))

	selected := doc.Find(`select[name="status"] option[selected]`)
	require.Equal(t, "confirmed", selected.AttrOr("value", ""))
	_, checked := doc.Find(`input[name="vip"]`).Attr("checked")
	require.True(t, checked)
	require.Equal(t, 1, doc.Find(`input[name="vip__present"]`).Length())
	require.Equal(t, "/uploads/v.pdf", doc.Find(".form__current").AttrOr("href", ""))
}

func TestCreateFormPostsToCollection(t *testing.T) {
	t.Parallel()

	def := bookingsDefinition()
	def.Form = def.Form[:2]
	doc := render(t, Form(FormData{Module: def, BasePath: "/admin"}))
	require.Equal(t, "/admin/bookings", doc.Find("form").AttrOr("hx-post", ""))
	require.Empty(t, doc.Find("form").AttrOr("hx-encoding", ""))
	require.Equal(t, "New booking", doc.Find("h2").Text())
}

func TestDetailPanelLeadActions(t *testing.T) {
	t.Parallel()

	data := DetailData{
		Module:   crm.Definition{Key: "leads", Label: "Leads", Singular: "Lead"},
		BasePath: "/admin",
		Detail: crm.Detail{
			ID:    "lea-1",
			Title: "Kerala honeymoon",
			Fields: []crm.DetailField{
				{Label: "Phone", Text: "+91 98450"},
				{Label: "Notes", Text: "fallback", HTML: "<p>Call <em>after</em> 6pm</p>"},
			},
			Values: map[string]string{"stage": "proposal"},
		},
		CanManage: true,
	}

	doc := render(t, DetailPanel(data))
	require.Equal(t, "Kerala honeymoon", doc.Find("h2").Text())
	require.Equal(t, "after", doc.Find(".detail__rich em").Text())
	require.Equal(t, "/admin/leads/lea-1", doc.Find("button.btn--danger").AttrOr("hx-delete", ""))
	require.Equal(t, "proposal", doc.Find(`select[name="stage"] option[selected]`).AttrOr("value", ""))
	require.Equal(t, "/admin/leads/lea-1/remarks", doc.Find(".lead-actions__remark").AttrOr("hx-post", ""))
	require.Equal(t, 1, doc.Find(`[hx-post="/admin/leads/lea-1/reminder/done"]`).Length())

	data.CanManage = false
	doc = render(t, DetailPanel(data))
	require.Equal(t, 0, doc.Find(".lead-actions").Length())
	require.Equal(t, 0, doc.Find(".detail__actions").Length())
}
