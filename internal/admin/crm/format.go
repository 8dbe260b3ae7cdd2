package crm

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// DefaultCurrency applies to amounts whose record carries no currency.
const DefaultCurrency = "INR"

// Timestamps are the audit times most CRM records carry.
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

func decodeTimestamps(r collection.Record) Timestamps {
	var ts Timestamps
	ts.CreatedAt, _ = r.Time("createdAt")
	ts.UpdatedAt, _ = r.Time("updatedAt")
	return ts
}

func recency[T any](ts func(T) Timestamps) func(a, b T) int {
	return viewquery.Recency(
		func(item T) time.Time { return ts(item).CreatedAt },
		func(item T) time.Time { return ts(item).UpdatedAt },
	)
}

func requireID(r collection.Record) (string, error) {
	id := r.ID()
	if id == "" {
		return "", collection.ErrMissingID
	}
	return id, nil
}

// Money formats an amount with grouping, e.g. "INR 12,500.00".
func Money(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return message.NewPrinter(language.English).Sprintf("%s %.2f", currency, amount)
}

// Day formats a date for tables. The zero time renders as "-".
func Day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// Label turns an API enum such as "on_hold" into "On Hold".
func Label(raw string) string {
	raw = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(raw))
	if raw == "" {
		return "-"
	}
	return cases.Title(language.English).String(raw)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func dateValue(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func toneFor(status string, tones map[string]string) string {
	if tone, ok := tones[strings.ToLower(status)]; ok {
		return tone
	}
	return "neutral"
}
