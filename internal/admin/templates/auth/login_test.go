package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestLoginPageRendersState(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := LoginPage(LoginPageData{
		Email:     "agent@example.com",
		Error:     "Sign-in failed.",
		Remember:  true,
		Next:      "/admin/leads",
		LoginPath: "/admin/login",
		CSRFToken: "tok",
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	require.Equal(t, "/admin/login", doc.Find("form").AttrOr("action", ""))
	require.Equal(t, "tok", doc.Find(`input[name="csrf_token"]`).AttrOr("value", ""))
	require.Equal(t, "/admin/leads", doc.Find(`input[name="next"]`).AttrOr("value", ""))
	require.Equal(t, "agent@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
	_, checked := doc.Find(`input[name="remember"]`).Attr("checked")
	require.True(t, checked)
	require.Equal(t, "Sign-in failed.", doc.Find(".alert--danger").Text())
}
