package profile

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	adminprofile "finitefield.org/travel-admin/internal/admin/profile"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

// PageData drives the profile page.
type PageData struct {
	Summary    adminprofile.Summary
	BasePath   string
	ResetURL   string
	CSRFToken  string
	LogoutPath string
}

// BuildPageData wires URLs for the profile page.
func BuildPageData(basePath, csrfToken string, summary adminprofile.Summary) PageData {
	return PageData{
		Summary:    summary,
		BasePath:   basePath,
		ResetURL:   helpers.JoinPath(basePath, "profile", "views", "reset"),
		CSRFToken:  csrfToken,
		LogoutPath: helpers.JoinPath(basePath, "logout"),
	}
}

// ViewHref links a saved view back to its module with the query applied.
func (d PageData) ViewHref(v adminprofile.SavedView) string {
	href := helpers.JoinPath(d.BasePath, v.Module)
	if q := v.Query.Values().Encode(); q != "" {
		href += "?" + q
	}
	return href
}

// Page renders identity, module access and saved views.
func Page(data PageData) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		s := data.Summary
		h.Open("section", "class", "profile")

		h.Open("dl", "class", "profile__identity")
		h.Element("dt", "Email")
		h.Element("dd", orDash(s.Identity.Email), "data-field", "email")
		h.Element("dt", "Roles")
		h.Element("dd", orDash(strings.Join(s.Identity.Roles, ", ")), "data-field", "roles")
		if !s.Session.ExpiresAt.IsZero() {
			h.Element("dt", "Session expires")
			h.Element("dd", helpers.Date(s.Session.ExpiresAt, "02 Jan 2006 15:04"), "data-field", "expires")
		}
		if s.Session.RememberMe {
			h.Element("dt", "Remembered")
			h.Element("dd", "Yes", "data-field", "remember")
		}
		h.Close("dl")

		h.Open("section", "class", "profile__access", "aria-label", "Module access")
		h.Element("h2", "Module access")
		h.Raw(`<table class="table"><thead><tr><th scope="col">Module</th><th scope="col">View</th><th scope="col">Manage</th></tr></thead><tbody>`)
		for _, a := range s.Access {
			h.Open("tr", "data-module", a.Key)
			h.Element("td", a.Label)
			h.Element("td", yesNo(a.View), "data-access", "view")
			h.Element("td", yesNo(a.Manage), "data-access", "manage")
			h.Close("tr")
		}
		h.Raw("</tbody></table></section>")

		h.Open("section", "class", "profile__views", "aria-label", "Saved views")
		h.Element("h2", "Saved views")
		if len(s.Views) == 0 {
			h.Element("p", "No saved views. Tables open with their default order.", "class", "profile__empty")
		} else {
			h.Open("ul", "class", "profile__view-list")
			for _, v := range s.Views {
				h.Open("li", "data-view", v.Module)
				h.Element("a", v.Label, "href", data.ViewHref(v))
				h.Element("span", v.Description, "class", "profile__view-desc")
				h.Close("li")
			}
			h.Close("ul")
			h.Open("form", "method", "post", "action", data.ResetURL,
				"hx-post", data.ResetURL, "hx-target", "closest .profile__views", "hx-select", ".profile__views", "hx-swap", "outerHTML")
			h.Open("input", "type", "hidden", "name", "csrf_token", "value", data.CSRFToken)
			h.Element("button", "Reset saved views", "type", "submit", "class", "btn btn--secondary")
			h.Close("form")
		}
		h.Close("section")

		h.Open("form", "method", "post", "action", data.LogoutPath, "class", "profile__logout")
		h.Open("input", "type", "hidden", "name", "csrf_token", "value", data.CSRFToken)
		h.Element("button", "Sign out", "type", "submit", "class", "btn btn--danger")
		h.Close("form")

		h.Close("section")
	})
}

func yesNo(ok bool) string {
	if ok {
		return "Yes"
	}
	return "No"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
