package helpers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// Date formats the timestamp in the provided layout (defaults to 02 Jan 2006 15:04).
// Zero timestamps render as "-".
func Date(ts time.Time, layout string) string {
	if ts.IsZero() {
		return "-"
	}
	if layout == "" {
		layout = "02 Jan 2006 15:04"
	}
	return ts.In(time.Local).Format(layout)
}

// Relative returns a coarse "time ago" string measured from now.
func Relative(ts, now time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return ts.Format("2006-01-02")
}

// NavClass returns sidebar link classes.
func NavClass(active bool) string {
	if active {
		return "nav-link nav-link--active"
	}
	return "nav-link"
}

// BadgeClass maps semantic tones to badge classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success", "warning", "danger", "info":
		return "badge badge--" + tone
	default:
		return "badge"
	}
}

// TextComponent returns a templ component that renders escaped text.
func TextComponent(value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}

// SetRawQuery sets key to value in an encoded query string.
func SetRawQuery(rawQuery, key, value string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		values = url.Values{}
	}
	values.Set(key, value)
	return values.Encode()
}

// DelRawQuery removes key from an encoded query string.
func DelRawQuery(rawQuery, key string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	values.Del(key)
	return values.Encode()
}

// BuildURL replaces the query of path with rawQuery. An empty query yields the bare path.
func BuildURL(path, rawQuery string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
