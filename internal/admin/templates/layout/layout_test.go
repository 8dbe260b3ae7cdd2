package layout

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

func TestBuildPageDataFiltersNavByCapability(t *testing.T) {
	t.Parallel()

	defs := []crm.Definition{
		{Key: "leads", Label: "Leads", ViewCapability: rbac.CapLeadsView},
		{Key: "payments", Label: "Payments", ViewCapability: rbac.CapPaymentsView},
	}

	var data PageData
	handler := middleware.RequestInfoMiddleware("/admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.ContextWithUser(r.Context(), &middleware.User{UID: "u-1", Email: "sales@example.com", Roles: []string{"sales"}})
		data = BuildPageData(ctx, "Leads", defs)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/leads", nil))

	keys := make([]string, 0, len(data.Nav))
	for _, item := range data.Nav {
		keys = append(keys, item.Key)
		if item.Key == "leads" {
			require.True(t, item.Active)
			require.Equal(t, "/admin/leads", item.Href)
		}
	}
	require.Equal(t, []string{"dashboard", "search", "leads"}, keys)
	require.Equal(t, "sales@example.com", data.UserEmail)
}

func TestPageRendersChromeAndEscapesContent(t *testing.T) {
	t.Parallel()

	data := PageData{
		Title:       "Customers",
		Environment: "Staging",
		UserEmail:   "ops@example.com",
		CSRFToken:   "tok-123",
		BasePath:    "/admin",
		Nav:         []NavItem{{Key: "customers", Label: "Customers", Href: "/admin/customers", Active: true}},
	}
	var buf bytes.Buffer
	require.NoError(t, Page(data, helpers.TextComponent("<script>alert(1)</script>")).Render(context.Background(), &buf))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	require.Equal(t, "Customers | Travel CRM Admin", doc.Find("title").Text())
	require.Equal(t, `{"X-CSRF-Token":"tok-123"}`, doc.Find("body").AttrOr("hx-headers", ""))
	require.Equal(t, "nav-link nav-link--active", doc.Find(`a[data-nav="customers"]`).AttrOr("class", ""))
	require.Equal(t, "tok-123", doc.Find(`form.topbar__logout input[name="csrf_token"]`).AttrOr("value", ""))
	require.Equal(t, 0, doc.Find("main script").Length())
	require.Contains(t, doc.Find("main").Text(), "<script>alert(1)</script>")
}
