package modules

import (
	"net/url"
	"strconv"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// TableData drives the module table fragment.
type TableData struct {
	Module    crm.Definition
	Listing   crm.Listing
	BasePath  string
	Error     string
	CanManage bool
}

// ModuleURL returns the module path joined with segments.
func (d TableData) ModuleURL(segments ...string) string {
	return helpers.JoinPath(d.BasePath, append([]string{d.Module.Key}, segments...)...)
}

// TableURL returns the table fragment URL for state.
func (d TableData) TableURL(state viewquery.State) string {
	return withQuery(d.ModuleURL("table"), state.Values())
}

// PageURL returns the full page URL for the current query, used for HX-Push-Url.
func (d TableData) PageURL() string {
	return withQuery(d.ModuleURL(), d.Listing.Query.Values())
}

// GotoURL returns the table fragment URL for page.
func (d TableData) GotoURL(page int) string {
	state := d.Listing.Query
	state.SetPage(page)
	return d.TableURL(state)
}

// SortURL returns the table fragment URL after toggling the sort on key.
func (d TableData) SortURL(key string) string {
	state := d.Listing.Query
	state.ToggleSort(key)
	return d.TableURL(state)
}

// RefreshURL re-fetches the current page from the API.
func (d TableData) RefreshURL() string {
	values := d.Listing.Query.Values()
	values.Set("refresh", "1")
	return withQuery(d.ModuleURL("table"), values)
}

// AriaSort returns the aria-sort value of column key.
func (d TableData) AriaSort(key string) string {
	sort := d.Listing.Query.Sort
	if sort == nil || sort.Key != key {
		return "none"
	}
	if sort.Direction == viewquery.Desc {
		return "descending"
	}
	return "ascending"
}

// SortIndicator returns the arrow shown next to a sorted column.
func (d TableData) SortIndicator(key string) string {
	switch d.AriaSort(key) {
	case "ascending":
		return "▲"
	case "descending":
		return "▼"
	default:
		return ""
	}
}

// Summary describes the visible range, e.g. "11-20 of 42".
func (d TableData) Summary() string {
	l := d.Listing
	if l.TotalItems == 0 || len(l.Rows) == 0 {
		return "No records"
	}
	first := (l.Page-1)*l.PageSize + 1
	last := first + len(l.Rows) - 1
	return strconv.Itoa(first) + "-" + strconv.Itoa(last) + " of " + strconv.Itoa(l.TotalItems)
}

// FormData drives the create and edit forms.
type FormData struct {
	Module    crm.Definition
	BasePath  string
	ID        string
	Values    map[string]string
	Error     string
	Field     string
	CSRFToken string
}

// Editing reports whether the form edits an existing record.
func (d FormData) Editing() bool {
	return d.ID != ""
}

// Action returns the form target.
func (d FormData) Action() string {
	if d.Editing() {
		return helpers.JoinPath(d.BasePath, d.Module.Key, d.ID)
	}
	return helpers.JoinPath(d.BasePath, d.Module.Key)
}

// DetailData drives the detail panel.
type DetailData struct {
	Module    crm.Definition
	Detail    crm.Detail
	BasePath  string
	CanManage bool
	CSRFToken string
	Error     string
}

// RecordURL returns the record path joined with segments.
func (d DetailData) RecordURL(segments ...string) string {
	return helpers.JoinPath(d.BasePath, append([]string{d.Module.Key, d.Detail.ID}, segments...)...)
}

// LeadActions reports whether the pipeline controls apply.
func (d DetailData) LeadActions() bool {
	return d.Module.Key == "leads" && d.CanManage
}

func withQuery(path string, values url.Values) string {
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}
