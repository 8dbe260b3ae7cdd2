package layout

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

// NavItem is one sidebar link.
type NavItem struct {
	Key    string
	Label  string
	Href   string
	Active bool
}

// PageData is the chrome shared by every console page.
type PageData struct {
	Title       string
	Environment string
	UserEmail   string
	CSRFToken   string
	BasePath    string
	Nav         []NavItem
}

// BuildPageData assembles the chrome for the current request. Modules the user cannot view are left out.
func BuildPageData(ctx context.Context, title string, defs []crm.Definition) PageData {
	base := helpers.BasePath(ctx)
	nav := []NavItem{{
		Key:    "dashboard",
		Label:  "Dashboard",
		Href:   base,
		Active: helpers.NavActive(ctx, base, false),
	}}
	if helpers.HasCapability(ctx, rbac.CapSearchGlobal) {
		href := helpers.JoinPath(base, "search")
		nav = append(nav, NavItem{Key: "search", Label: "Search", Href: href, Active: helpers.NavActive(ctx, href, true)})
	}
	for _, def := range defs {
		if !helpers.HasCapability(ctx, def.ViewCapability) {
			continue
		}
		href := helpers.JoinPath(base, def.Key)
		nav = append(nav, NavItem{Key: def.Key, Label: def.Label, Href: href, Active: helpers.NavActive(ctx, href, true)})
	}
	return PageData{
		Title:       title,
		Environment: middleware.EnvironmentFromContext(ctx),
		UserEmail:   helpers.UserEmail(ctx),
		CSRFToken:   middleware.CSRFTokenFromContext(ctx),
		BasePath:    base,
		Nav:         nav,
	}
}

// Page renders the console document around content.
func Page(data PageData, content templ.Component) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Raw("<!DOCTYPE html>")
		h.Open("html", "lang", "en")
		h.Raw("<head>")
		h.Raw(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.Open("meta", "name", "csrf-token", "content", data.CSRFToken)
		h.Element("title", data.Title+" | Travel CRM Admin")
		h.Raw(`<link rel="stylesheet" href="/public/static/app.css">`)
		h.Raw(`<script src="https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js" defer></script>`)
		h.Raw(`<script src="/public/static/app.js" defer></script>`)
		h.Raw("</head>")

		h.Open("body", "hx-headers", csrfHeaders(data.CSRFToken))
		h.Open("header", "class", "topbar")
		h.Element("a", "Travel CRM", "class", "topbar__brand", "href", data.BasePath)
		h.Element("span", data.Environment, "class", "topbar__env", "data-env", data.Environment)
		if data.UserEmail != "" {
			h.Element("a", data.UserEmail, "class", "topbar__user", "href", helpers.JoinPath(data.BasePath, "profile"))
			h.Open("form", "method", "post", "action", helpers.JoinPath(data.BasePath, "logout"), "class", "topbar__logout")
			h.Open("input", "type", "hidden", "name", "csrf_token", "value", data.CSRFToken)
			h.Raw(`<button type="submit">Sign out</button></form>`)
		}
		h.Close("header")

		h.Raw(`<div class="shell">`)
		h.Open("nav", "class", "sidebar", "aria-label", "Modules")
		h.Raw("<ul>")
		for _, item := range data.Nav {
			h.Raw("<li>")
			h.Element("a", item.Label, "href", item.Href, "class", helpers.NavClass(item.Active), "data-nav", item.Key)
			h.Raw("</li>")
		}
		h.Raw("</ul></nav>")
		h.Open("main", "id", "content", "class", "content")
		h.Element("h1", data.Title, "class", "page-title")
		h.Render(ctx, content)
		h.Close("main")
		h.Raw(`</div><div id="toasts" class="toasts" aria-live="polite"></div>`)
		h.Raw("</body></html>")
	})
}

func csrfHeaders(token string) string {
	raw, err := json.Marshal(map[string]string{"X-CSRF-Token": token})
	if err != nil {
		return "{}"
	}
	return string(raw)
}
