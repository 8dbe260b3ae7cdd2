package middleware

import (
	"net/http"
	"strings"

	"finitefield.org/travel-admin/internal/admin/collection"
)

// APICredentials forwards the staff member's bearer token, and the CRM session cookie named
// cookieName when the browser sent one, to every CRM API call made while serving the request.
func APICredentials(cookieName string) func(http.Handler) http.Handler {
	cookieName = strings.TrimSpace(cookieName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var creds collection.Credentials
			if user, ok := UserFromContext(r.Context()); ok {
				creds.Token = user.Token
			}
			if cookieName != "" {
				if c, err := r.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
					creds.Cookie = &http.Cookie{Name: c.Name, Value: c.Value}
				}
			}
			if creds.Token == "" && creds.Cookie == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(collection.WithCredentials(r.Context(), creds)))
		})
	}
}
