package httpserver

import (
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
)

func TestRedirectPolicyNext(t *testing.T) {
	t.Parallel()

	p := newRedirectPolicy("/admin", "/admin/login")
	cases := map[string]string{
		"":                              "",
		"/admin":                        "/admin",
		"/admin/customers?q=asha#top":   "/admin/customers?q=asha#top",
		"/admin/customers/../bookings":  "/admin/bookings",
		"https://evil.example/admin":    "",
		"//evil.example/admin":          "",
		"/admin/../etc/passwd":          "",
		"/admin/%2e%2e/secret":          "",
		"/administrator":                "",
		"/admin/login?next=/admin":      "",
		"/admin/login/":                 "",
		"javascript:alert(1)":           "",
		"/admin/leads/l1?tab=remarks":   "/admin/leads/l1?tab=remarks",
		"  /admin/batches  ":            "/admin/batches",
		"https://user@evil.example/":    "",
		"/admin\\..\\..\\windows":       "",
		"/admin/payments?status=failed": "/admin/payments?status=failed",
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			require.Equal(t, want, p.next(raw))
		})
	}
}

func TestRedirectPolicyTarget(t *testing.T) {
	t.Parallel()

	p := newRedirectPolicy("/admin/", "")
	require.Equal(t, "/admin/login", p.login)
	require.Equal(t, "/admin", p.target("https://evil.example"))
	require.Equal(t, "/admin/customers", p.target("/admin/customers"))

	root := newRedirectPolicy("", "")
	require.Equal(t, "/", root.home())
	require.Equal(t, "/login", root.login)
	require.Equal(t, "/bookings", root.target("/bookings"))
	require.Equal(t, "/", root.target("/login"))
}

func TestRedirectPolicyLoginURL(t *testing.T) {
	t.Parallel()

	p := newRedirectPolicy("/admin", "/admin/login")
	require.Equal(t, "/admin/login?status=logged_out", p.loginURL(url.Values{"status": {"logged_out"}, "email": {" "}}))
	require.Equal(t, "/admin/login", p.loginURL(nil))
}

func TestSignInError(t *testing.T) {
	t.Parallel()

	require.Equal(t, msgUnknownFailed, signInError(nil))
	require.Equal(t, msgExpired, signInError(&custommw.AuthError{Reason: custommw.ReasonTokenExpired}))
	require.Equal(t, msgMissingCreds, signInError(fmt.Errorf("verify: %w", &custommw.AuthError{Reason: custommw.ReasonMissingToken})))
	require.Equal(t, msgRejected, signInError(&custommw.AuthError{Reason: custommw.ReasonTokenInvalid}))
	require.Equal(t, msgRejected, signInError(custommw.ErrUnauthorized))
	require.Equal(t, msgUnavailable, signInError(errors.New("dial tcp: connection refused")))
}

func TestNoticeFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, msgSignedOut, noticeFor(url.Values{"status": {"logged_out"}}))
	require.Equal(t, msgExpired, noticeFor(url.Values{"reason": {custommw.ReasonTokenExpired}}))
	require.Equal(t, msgExpired, noticeFor(url.Values{"reason": {"expired"}}))
	require.Equal(t, msgSignInNeeded, noticeFor(url.Values{"reason": {custommw.ReasonMissingToken}}))
	require.Empty(t, noticeFor(url.Values{"reason": {"other"}}))
	require.Empty(t, noticeFor(nil))
}

func TestChecked(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"1", "on", "TRUE", " yes ", "force"} {
		require.True(t, checked(v), v)
	}
	for _, v := range []string{"", "0", "off", "no"} {
		require.False(t, checked(v), v)
	}
}
