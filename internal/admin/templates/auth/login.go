package auth

import (
	"context"

	"github.com/a-h/templ"

	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

// LoginPage renders the standalone sign-in document. The identity provider script fills id_token before submit.
func LoginPage(data LoginPageData) templ.Component {
	return helpers.Component(func(_ context.Context, h *helpers.HTML) {
		h.Raw("<!DOCTYPE html>")
		h.Open("html", "lang", "en")
		h.Raw(`<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.Element("title", "Sign in | Travel CRM Admin")
		h.Raw(`<link rel="stylesheet" href="/public/static/app.css">`)
		h.Raw(`<script src="/public/static/app.js" defer></script>`)
		h.Raw("</head>")
		h.Raw(`<body class="login">`)
		h.Open("main", "class", "login__card")
		h.Element("h1", "Travel CRM Admin")
		if data.Message != "" {
			h.Element("p", data.Message, "class", "alert alert--info", "role", "status")
		}
		if data.Error != "" {
			h.Element("p", data.Error, "class", "alert alert--danger", "role", "alert")
		}
		attrs := []string{"method", "post", "action", data.LoginPath, "class", "form", "data-login", "true"}
		if data.WebAPIKey != "" {
			attrs = append(attrs, "data-firebase-key", data.WebAPIKey)
		}
		h.Open("form", attrs...)
		h.Open("input", "type", "hidden", "name", "csrf_token", "value", data.CSRFToken)
		h.Open("input", "type", "hidden", "name", "next", "value", data.Next)
		h.Raw(`<div class="form__field"><label for="login-email">Email</label>`)
		h.Open("input", "type", "email", "id", "login-email", "name", "email", "value", data.Email, "autocomplete", "username", "required", "required")
		h.Raw(`</div><div class="form__field"><label for="login-password">Password</label>`)
		h.Raw(`<input type="password" id="login-password" name="password" autocomplete="current-password"></div>`)
		h.Raw(`<input type="hidden" name="id_token" value="">`)
		h.Raw(`<div class="form__field"><label>`)
		h.Raw(`<input type="checkbox" name="remember" value="on"`)
		h.BoolAttr("checked", data.Remember)
		h.Raw("> Keep me signed in</label></div>")
		h.Raw(`<button type="submit" class="btn btn--primary">Sign in</button>`)
		h.Close("form")
		h.Close("main")
		h.Raw("</body></html>")
	})
}
