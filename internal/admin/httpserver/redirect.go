package httpserver

import (
	"cmp"
	"net/url"
	"path"
	"strings"
)

// redirectPolicy decides where the console sends a browser after sign-in and sign-out.
// Only same-origin paths under base are followed.
type redirectPolicy struct {
	base  string
	login string
}

func newRedirectPolicy(base, login string) redirectPolicy {
	base = cleanBase(base)
	if strings.TrimSpace(login) == "" {
		login = path.Join(base, "login")
	}
	return redirectPolicy{base: base, login: login}
}

// home is the landing page when no usable next target was posted.
func (p redirectPolicy) home() string {
	return p.base
}

// target returns the safe form of raw, or home.
func (p redirectPolicy) target(raw string) string {
	if next := p.next(raw); next != "" {
		return next
	}
	return p.home()
}

// next returns raw when it stays inside the console and does not point back at the login page.
func (p redirectPolicy) next(raw string) string {
	u, ok := p.local(raw)
	if !ok || trimSlashes(u.Path) == trimSlashes(p.login) {
		return ""
	}
	return u.String()
}

func (p redirectPolicy) local(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return nil, false
	}
	decoded, err := url.PathUnescape(cmp.Or(u.Path, "/"))
	if err != nil || strings.ContainsRune(decoded, '\\') {
		return nil, false
	}
	cleaned := path.Clean("/" + decoded)
	if strings.HasPrefix(cleaned, "//") || !within(cleaned, p.base) {
		return nil, false
	}
	return &url.URL{Path: cleaned, RawQuery: u.RawQuery, Fragment: u.Fragment}, true
}

// loginURL is the login page with query parameters, skipping blank values.
func (p redirectPolicy) loginURL(params url.Values) string {
	u, err := url.Parse(p.login)
	if err != nil {
		return p.login
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				q.Add(key, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func within(p, base string) bool {
	if base == "/" {
		return true
	}
	return p == base || strings.HasPrefix(p, base+"/")
}

func cleanBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "/"
	}
	return path.Clean("/" + base)
}

func trimSlashes(p string) string {
	return "/" + strings.Trim(p, "/")
}
