package modules

import (
	"context"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

const (
	tableID  = "module-table"
	detailID = "detail-panel"
)

// Index renders the module page body: toolbar, table and an empty detail panel.
func Index(data TableData) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("section", "class", "module", "data-module", data.Module.Key)
		h.Open("div", "class", "toolbar")
		h.Open("form", "class", "toolbar__search", "role", "search",
			"hx-get", data.ModuleURL("table"),
			"hx-target", "#"+tableID,
			"hx-swap", "outerHTML",
			"hx-trigger", "input changed delay:300ms from:find input, submit")
		h.Open("input", "type", "search", "name", "q", "value", data.Listing.Query.Search,
			"placeholder", "Search "+strings.ToLower(data.Module.Label), "aria-label", "Search")
		h.Open("input", "type", "hidden", "name", "pageSize", "value", itoa(data.Listing.Query.PageSize))
		h.Close("form")
		h.Element("button", "Refresh", "type", "button", "class", "btn btn--ghost",
			"hx-get", data.RefreshURL(), "hx-target", "#"+tableID, "hx-swap", "outerHTML")
		if data.CanManage {
			h.Element("button", "New "+strings.ToLower(data.Module.Singular), "type", "button", "class", "btn btn--primary",
				"hx-get", data.ModuleURL("new"), "hx-target", "#"+detailID, "hx-swap", "innerHTML")
		}
		h.Close("div")
		h.Render(ctx, Table(data))
		h.Raw(`<aside id="` + detailID + `" class="detail-panel" aria-live="polite"></aside>`)
		h.Close("section")
	})
}

// Table renders the swappable table fragment. It re-fetches itself when a crm:refresh event fires.
func Table(data TableData) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("div", "id", tableID, "class", "table-wrap",
			"hx-get", data.RefreshURL(),
			"hx-trigger", "crm:refresh from:body",
			"hx-swap", "outerHTML")

		status := data.Listing.Status
		switch {
		case data.Error != "":
			h.Element("p", data.Error, "class", "alert alert--danger", "role", "alert")
		case status.Failed():
			h.Element("p", status.Error, "class", "alert alert--danger", "role", "alert")
		case status.Loading():
			h.Element("p", "Loading…", "class", "table__status")
		}

		rows := data.Listing.Rows
		h.Raw(`<table class="table"><thead><tr>`)
		for _, col := range data.Module.Columns {
			if !col.Sortable {
				h.Element("th", col.Label, "scope", "col")
				continue
			}
			h.Open("th", "scope", "col", "aria-sort", data.AriaSort(col.Key))
			h.Open("button", "type", "button", "class", "table__sort", "data-sort", col.Key,
				"hx-get", data.SortURL(col.Key), "hx-target", "#"+tableID, "hx-swap", "outerHTML")
			h.Text(col.Label)
			if arrow := data.SortIndicator(col.Key); arrow != "" {
				h.Element("span", arrow, "class", "table__arrow", "aria-hidden", "true")
			}
			h.Close("button")
			h.Close("th")
		}
		h.Raw("</tr></thead><tbody>")
		if len(rows) == 0 {
			h.Open("tr", "class", "table__empty")
			h.Open("td", "colspan", itoa(max(len(data.Module.Columns), 1)))
			if data.Listing.Query.Search != "" {
				h.Text("No " + strings.ToLower(data.Module.Label) + " match \"" + data.Listing.Query.Search + "\".")
			} else {
				h.Text("No " + strings.ToLower(data.Module.Label) + " yet.")
			}
			h.Close("td")
			h.Close("tr")
		}
		for _, row := range rows {
			h.Open("tr", "data-id", row.ID, "class", "table__row",
				"hx-get", data.ModuleURL(row.ID), "hx-target", "#"+detailID, "hx-swap", "innerHTML")
			for _, cell := range row.Cells {
				if cell.Tone != "" {
					h.Raw("<td>")
					h.Element("span", cell.Text, "class", helpers.BadgeClass(cell.Tone))
					h.Raw("</td>")
					continue
				}
				h.Element("td", cell.Text)
			}
			h.Close("tr")
		}
		h.Raw("</tbody></table>")
		h.Render(ctx, Pager(data))
		h.Close("div")
	})
}

// Pager renders previous/next controls and the visible range.
func Pager(data TableData) templ.Component {
	return helpers.Component(func(_ context.Context, h *helpers.HTML) {
		l := data.Listing
		h.Open("nav", "class", "pager", "aria-label", "Pagination")
		h.Element("span", data.Summary(), "class", "pager__summary")
		h.Element("span", "Page "+itoa(l.Page)+" of "+itoa(max(l.TotalPages, 1)), "class", "pager__position")
		pagerButton(h, data, "Previous", "prev", l.Page-1, l.HasPrev())
		pagerButton(h, data, "Next", "next", l.Page+1, l.HasNext())
		if !l.Status.RefreshedAt.IsZero() {
			h.Element("span", "Updated "+helpers.Date(l.Status.RefreshedAt, "15:04:05"), "class", "pager__refreshed")
		}
		h.Close("nav")
	})
}

func pagerButton(h *helpers.HTML, data TableData, label, rel string, page int, enabled bool) {
	if !enabled {
		h.Element("button", label, "type", "button", "class", "btn btn--ghost", "data-rel", rel, "disabled", "disabled")
		return
	}
	h.Element("button", label, "type", "button", "class", "btn btn--ghost", "data-rel", rel,
		"hx-get", data.GotoURL(page), "hx-target", "#"+tableID, "hx-swap", "outerHTML")
}

// Form renders the create or edit form into the detail panel.
func Form(data FormData) templ.Component {
	return helpers.Component(func(_ context.Context, h *helpers.HTML) {
		title := "New " + strings.ToLower(data.Module.Singular)
		if data.Editing() {
			title = "Edit " + strings.ToLower(data.Module.Singular)
		}
		h.Element("h2", title, "class", "detail-panel__title")
		if data.Error != "" {
			h.Element("p", data.Error, "class", "alert alert--danger", "role", "alert")
		}

		attrs := []string{
			"method", "post", "action", data.Action(), "class", "form",
			"hx-post", data.Action(), "hx-target", "#" + detailID, "hx-swap", "innerHTML",
		}
		if data.Module.Multipart() {
			attrs = append(attrs, "enctype", "multipart/form-data", "hx-encoding", "multipart/form-data")
		}
		h.Open("form", attrs...)
		h.Open("input", "type", "hidden", "name", "csrf_token", "value", data.CSRFToken)
		for _, field := range data.Module.Form {
			renderField(h, field, data.Values[field.Name], data.Field == field.Name)
		}
		h.Open("div", "class", "form__actions")
		h.Element("button", "Save", "type", "submit", "class", "btn btn--primary")
		h.Element("button", "Cancel", "type", "button", "class", "btn btn--ghost", "data-dismiss", detailID)
		h.Close("div")
		h.Close("form")
	})
}

func renderField(h *helpers.HTML, field crm.FormField, value string, invalid bool) {
	id := "field-" + field.Name
	class := "form__field"
	if invalid {
		class += " form__field--invalid"
	}
	h.Open("div", "class", class, "data-field", field.Name)

	if field.Type == crm.FieldCheckbox {
		h.Open("input", "type", "hidden", "name", field.Name+"__present", "value", "1")
		h.Open("label", "for", id)
		h.Raw(`<input type="checkbox"`)
		h.Attr("id", id)
		h.Attr("name", field.Name)
		h.Attr("value", "on")
		h.BoolAttr("checked", checked(value))
		h.Raw(">")
		h.Text(" " + field.Label)
		h.Close("label")
		fieldHelp(h, field)
		h.Close("div")
		return
	}

	h.Open("label", "for", id)
	h.Text(field.Label)
	if field.Required {
		h.Element("span", "*", "class", "form__required", "aria-hidden", "true")
	}
	h.Close("label")

	switch field.Type {
	case crm.FieldTextarea:
		h.Raw("<textarea")
		h.Attr("id", id)
		h.Attr("name", field.Name)
		h.Attr("rows", "6")
		h.BoolAttr("required", field.Required)
		h.Raw(">")
		h.Text(value)
		h.Close("textarea")
	case crm.FieldSelect:
		h.Raw("<select")
		h.Attr("id", id)
		h.Attr("name", field.Name)
		h.BoolAttr("required", field.Required)
		h.Raw(">")
		if !field.Required {
			h.Element("option", "-", "value", "")
		}
		for _, opt := range field.Options {
			h.Raw("<option")
			h.Attr("value", opt)
			h.BoolAttr("selected", opt == value)
			h.Raw(">")
			h.Text(crm.Label(opt))
			h.Close("option")
		}
		h.Close("select")
	case crm.FieldFile:
		h.Raw(`<input type="file"`)
		h.Attr("id", id)
		h.Attr("name", field.Name)
		h.Raw(">")
		if value != "" {
			h.Element("a", "Current file", "href", value, "class", "form__current", "target", "_blank", "rel", "noopener")
		}
	default:
		inputType := string(field.Type)
		if field.Type == crm.FieldTags {
			inputType = "text"
		}
		h.Raw("<input")
		h.Attr("type", inputType)
		h.Attr("id", id)
		h.Attr("name", field.Name)
		h.Attr("value", value)
		if field.Type == crm.FieldNumber {
			h.Attr("step", "any")
		}
		h.BoolAttr("required", field.Required)
		h.Raw(">")
	}
	fieldHelp(h, field)
	h.Close("div")
}

func fieldHelp(h *helpers.HTML, field crm.FormField) {
	help := field.Help
	if help == "" && field.Type == crm.FieldTags {
		help = "Separate values with commas."
	}
	if help != "" {
		h.Element("small", help, "class", "form__help")
	}
}

// DetailPanel renders one record with edit and delete controls, plus the pipeline controls for leads.
func DetailPanel(data DetailData) templ.Component {
	return helpers.Component(func(_ context.Context, h *helpers.HTML) {
		d := data.Detail
		h.Open("article", "class", "detail", "data-id", d.ID)
		title := d.Title
		if title == "" {
			title = data.Module.Singular + " " + d.ID
		}
		h.Element("h2", title, "class", "detail-panel__title")
		if data.Error != "" {
			h.Element("p", data.Error, "class", "alert alert--danger", "role", "alert")
		}

		h.Raw(`<dl class="detail__fields">`)
		for _, f := range d.Fields {
			h.Element("dt", f.Label)
			if f.HTML != "" {
				h.Raw(`<dd class="detail__rich">`)
				// Sanitized when the detail was built.
				h.Raw(f.HTML)
				h.Raw("</dd>")
				continue
			}
			h.Element("dd", f.Text)
		}
		h.Raw("</dl>")

		if data.CanManage {
			h.Open("div", "class", "detail__actions")
			h.Element("button", "Edit", "type", "button", "class", "btn",
				"hx-get", data.RecordURL("edit"), "hx-target", "#"+detailID, "hx-swap", "innerHTML")
			h.Element("button", "Delete", "type", "button", "class", "btn btn--danger",
				"hx-delete", data.RecordURL(),
				"hx-confirm", "Delete this "+strings.ToLower(data.Module.Singular)+"?",
				"hx-target", "#"+tableID, "hx-swap", "outerHTML")
			h.Close("div")
		}
		if data.LeadActions() {
			leadActions(h, data)
		}
		h.Close("article")
	})
}

func leadActions(h *helpers.HTML, data DetailData) {
	target := []string{"hx-target", "#" + detailID, "hx-swap", "innerHTML"}
	h.Open("section", "class", "lead-actions")

	h.Open("form", append([]string{"class", "lead-actions__stage", "hx-post", data.RecordURL("stage")}, target...)...)
	h.Raw(`<label for="lead-stage">Stage</label><select id="lead-stage" name="stage">`)
	current := data.Detail.Values["stage"]
	for _, stage := range crm.LeadStages {
		h.Raw("<option")
		h.Attr("value", stage)
		h.BoolAttr("selected", stage == current)
		h.Raw(">")
		h.Text(crm.Label(stage))
		h.Close("option")
	}
	h.Raw(`</select><button type="submit" class="btn">Move</button></form>`)

	h.Open("form", append([]string{"class", "lead-actions__remark", "hx-post", data.RecordURL("remarks")}, target...)...)
	h.Raw(`<label for="lead-remark">Remark</label><textarea id="lead-remark" name="remark" rows="3" required></textarea>`)
	h.Raw(`<button type="submit" class="btn">Add remark</button></form>`)

	h.Open("form", append([]string{"class", "lead-actions__reminder", "hx-post", data.RecordURL("reminder")}, target...)...)
	h.Raw(`<label for="lead-reminder-at">Follow up at</label><input type="datetime-local" id="lead-reminder-at" name="at" required>`)
	h.Raw(`<label for="lead-reminder-note">Note</label><input type="text" id="lead-reminder-note" name="note">`)
	h.Raw(`<button type="submit" class="btn">Schedule</button></form>`)

	h.Element("button", "Mark follow-up done", append([]string{"type", "button", "class", "btn btn--ghost",
		"hx-post", data.RecordURL("reminder", "done")}, target...)...)
	h.Close("section")
}

// Message renders a standalone alert, used when a fragment cannot be produced.
func Message(text, tone string) templ.Component {
	return helpers.Component(func(_ context.Context, h *helpers.HTML) {
		h.Element("p", text, "class", "alert alert--"+tone, "role", "alert")
	})
}

func checked(value string) bool {
	switch strings.ToLower(value) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
