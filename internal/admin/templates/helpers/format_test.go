package helpers

import (
	"net/url"
	"testing"
	"time"
)

func TestSetRawQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rawQuery string
		key      string
		value    string
		want     map[string]string
	}{
		{
			name:     "updates existing key",
			rawQuery: "q=goa&page=2",
			key:      "page",
			value:    "3",
			want: map[string]string{
				"q":    "goa",
				"page":   "3",
			},
		},
		{
			name:     "adds new key when missing",
			rawQuery: "q=goa",
			key:      "page",
			value:    "1",
			want: map[string]string{
				"q":    "goa",
				"page":   "1",
			},
		},
		{
			name:     "handles empty input",
			rawQuery: "",
			key:      "page",
			value:    "1",
			want: map[string]string{
				"page": "1",
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := SetRawQuery(tc.rawQuery, tc.key, tc.value)
			values, err := url.ParseQuery(got)
			if err != nil {
				t.Fatalf("ParseQuery returned error: %v", err)
			}
			for k, expected := range tc.want {
				if got := values.Get(k); got != expected {
					t.Errorf("expected %s=%s, got %s", k, expected, got)
				}
			}
		})
	}
}

func TestDelRawQuery(t *testing.T) {
	t.Parallel()

	raw := "q=goa&page=2"
	got := DelRawQuery(raw, "page")
	values, err := url.ParseQuery(got)
	if err != nil {
		t.Fatalf("ParseQuery returned error: %v", err)
	}
	if values.Get("page") != "" {
		t.Errorf("expected page param removed, got %q", values.Get("page"))
	}
	if values.Get("q") != "goa" {
		t.Errorf("expected search preserved, got %q", values.Get("q"))
	}
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	u := BuildURL("/admin/bookings", "page=2&sort=-createdAt")
	if u != "/admin/bookings?page=2&sort=-createdAt" {
		t.Errorf("unexpected URL: %s", u)
	}

	// handles empty raw query without trailing question mark
	u = BuildURL("/admin/bookings?page=1", "")
	if u != "/admin/bookings" {
		t.Errorf("expected query stripped when empty, got %s", u)
	}
}

func TestRelative(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"never":      {},
		"just now":   now.Add(-20 * time.Second),
		"5m ago":     now.Add(-5 * time.Minute),
		"3h ago":     now.Add(-3 * time.Hour),
		"2025-03-01": time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	for want, ts := range cases {
		if got := Relative(ts, now); got != want {
			t.Errorf("Relative(%v) = %q, want %q", ts, got, want)
		}
	}
}

func TestBadgeClass(t *testing.T) {
	t.Parallel()

	if got := BadgeClass("danger"); got != "badge badge--danger" {
		t.Errorf("unexpected danger badge: %s", got)
	}
	if got := BadgeClass("mystery"); got != "badge" {
		t.Errorf("unexpected fallback badge: %s", got)
	}
}
