package httpserver

import (
	"cmp"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/travel-admin/internal/admin/crm"
	custommw "finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/observability"
	appsession "finitefield.org/travel-admin/internal/admin/session"
	"finitefield.org/travel-admin/internal/admin/templates/auth"
)

// tokenCookieName is read back by custommw.Auth when no Authorization header is sent.
const tokenCookieName = "Authorization"

const (
	msgSignedOut     = "You have been signed out."
	msgExpired       = "Your session has expired. Please sign in again."
	msgSignInNeeded  = "Please sign in to continue."
	msgInvalid       = "Your sign-in is no longer valid. Please sign in again."
	msgBadForm       = "The form could not be submitted. Please try again."
	msgNoToken       = "Sign in with your staff account to continue."
	msgRejected      = "Sign-in failed. Check your account details."
	msgMissingCreds  = "Credentials are missing. Please try again."
	msgUnavailable   = "Sign-in is unavailable. Please try again later."
	msgUnknownFailed = "An unknown error occurred."
)

// reasonNotices maps the ?reason= set by custommw.Auth redirects to a login page notice.
var reasonNotices = map[string]string{
	custommw.ReasonTokenExpired: msgExpired,
	"expired":                   msgExpired,
	custommw.ReasonMissingToken: msgSignInNeeded,
	custommw.ReasonTokenInvalid: msgInvalid,
}

// authHandlers serves the staff login page. The browser exchanges email and password for a
// Firebase ID token (when a web API key is configured) and posts only the token here.
type authHandlers struct {
	authenticator custommw.Authenticator
	redirects     redirectPolicy
	webAPIKey     string
	// pool is optional; when set, sign-out drops the staff member's cached stores.
	pool *crm.Pool
}

func newAuthHandlers(authenticator custommw.Authenticator, redirects redirectPolicy, webAPIKey string, pool *crm.Pool) *authHandlers {
	if authenticator == nil {
		panic("auth: authenticator is required")
	}
	return &authHandlers{
		authenticator: authenticator,
		redirects:     redirects,
		webAPIKey:     strings.TrimSpace(webAPIKey),
		pool:          pool,
	}
}

// loginAttempt is the posted sign-in form.
type loginAttempt struct {
	Email    string
	Token    string
	Next     string
	Remember bool
}

func readLoginAttempt(r *http.Request) (loginAttempt, error) {
	if err := r.ParseForm(); err != nil {
		return loginAttempt{}, err
	}
	return loginAttempt{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Token:    strings.TrimSpace(r.PostFormValue("id_token")),
		Next:     r.PostFormValue("next"),
		Remember: checked(r.PostFormValue("remember")),
	}, nil
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if signedIn(r) && !checked(q.Get("force")) {
		http.Redirect(w, r, h.redirects.target(q.Get("next")), http.StatusFound)
		return
	}

	remember := false
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		remember = sess.RememberMe()
	}
	h.render(w, r, http.StatusOK, loginAttempt{
		Email:    strings.TrimSpace(q.Get("email")),
		Next:     q.Get("next"),
		Remember: remember,
	}, "", noticeFor(q))
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	attempt, err := readLoginAttempt(r)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, attempt, msgBadForm, "")
		return
	}
	if attempt.Token == "" {
		h.render(w, r, http.StatusBadRequest, attempt, msgNoToken, "")
		return
	}

	user, err := h.authenticator.Authenticate(r, attempt.Token)
	if err != nil || user == nil {
		observability.FromContext(r.Context()).Warn("admin login failed", zap.String("email", attempt.Email), zap.Error(err))
		h.render(w, r, http.StatusUnauthorized, attempt, signInError(err), "")
		return
	}
	if user.Email == "" {
		user.Email = attempt.Email
	}

	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.SetUser(&appsession.User{UID: user.UID, Email: user.Email, Roles: slices.Clone(user.Roles)})
		sess.SetRememberMe(attempt.Remember)
	}
	h.setTokenCookie(w, r, cmp.Or(user.Token, attempt.Token), attempt.Remember)

	h.finish(w, r, h.redirects.target(attempt.Next))
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if u := sess.User(); u != nil && h.pool != nil {
			h.pool.Forget(crm.PrincipalKey(u.UID, u.Email))
		}
		sess.Destroy()
	}
	http.SetCookie(w, h.tokenCookie("", -1))

	h.finish(w, r, h.redirects.loginURL(url.Values{"status": {"logged_out"}}))
}

// finish redirects, using HX-Redirect for htmx requests so the whole page navigates.
func (h *authHandlers) finish(w http.ResponseWriter, r *http.Request, target string) {
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *authHandlers) render(w http.ResponseWriter, r *http.Request, status int, attempt loginAttempt, errText, notice string) {
	data := auth.LoginPageData{
		Email:     attempt.Email,
		Message:   notice,
		Error:     errText,
		Remember:  attempt.Remember,
		Next:      h.redirects.next(attempt.Next),
		LoginPath: h.redirects.login,
		BasePath:  h.redirects.base,
		CSRFToken: custommw.CSRFTokenFromContext(r.Context()),
		WebAPIKey: h.webAPIKey,
	}
	templ.Handler(auth.LoginPage(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *authHandlers) setTokenCookie(w http.ResponseWriter, r *http.Request, token string, remember bool) {
	if token == "" {
		http.SetCookie(w, h.tokenCookie("", -1))
		return
	}
	if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = "Bearer " + token
	}
	cookie := h.tokenCookie(token, 0)
	cookie.Secure = r.TLS != nil
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && remember {
		if expiry := sess.ExpiresAt(); !expiry.IsZero() {
			cookie.Expires = expiry.UTC()
			if remaining := time.Until(expiry); remaining > 0 {
				cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
			}
		}
	}
	http.SetCookie(w, cookie)
}

// tokenCookie builds the bearer cookie. A negative maxAge expires it.
func (h *authHandlers) tokenCookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     tokenCookieName,
		Value:    value,
		Path:     h.redirects.base,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0)
	}
	return c
}

func signedIn(r *http.Request) bool {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		return false
	}
	u := sess.User()
	return u != nil && strings.TrimSpace(u.UID) != ""
}

func signInError(err error) string {
	var authErr *custommw.AuthError
	switch {
	case err == nil:
		return msgUnknownFailed
	case errors.As(err, &authErr) && authErr.Reason == custommw.ReasonTokenExpired:
		return msgExpired
	case errors.As(err, &authErr) && authErr.Reason == custommw.ReasonMissingToken:
		return msgMissingCreds
	case errors.As(err, &authErr), errors.Is(err, custommw.ErrUnauthorized):
		return msgRejected
	default:
		return msgUnavailable
	}
}

func noticeFor(q url.Values) string {
	if q.Get("status") == "logged_out" {
		return msgSignedOut
	}
	return reasonNotices[q.Get("reason")]
}

func checked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "on", "true", "yes", "force":
		return true
	}
	return false
}
