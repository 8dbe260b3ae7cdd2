package collection

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingID is returned by decoders when a record carries no usable identifier.
var ErrMissingID = errors.New("collection: record has no id")

// Record is one untyped JSON object from the CRM API. Numbers are json.Number.
type Record map[string]any

// ID normalises `_id` or `id` to a string. Object ids in {"$oid": "..."} form are unwrapped.
func (r Record) ID() string {
	for _, key := range []string{"_id", "id"} {
		if id := idString(r[key]); id != "" {
			return id
		}
	}
	return ""
}

func idString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case map[string]any:
		return idString(value["$oid"])
	case Record:
		return idString(value["$oid"])
	}
	return ""
}

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the string at key. Numbers and booleans are formatted; anything else yields "".
func (r Record) String(key string) string {
	switch value := r[key].(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case bool:
		return strconv.FormatBool(value)
	}
	return ""
}

// Float returns the number at key. Numeric strings are parsed; anything else yields 0.
func (r Record) Float(key string) float64 {
	f, _ := r.number(key)
	return f
}

// Int returns the number at key truncated to an int.
func (r Record) Int(key string) int {
	f, _ := r.number(key)
	return int(f)
}

func (r Record) number(key string) (float64, bool) {
	switch value := r[key].(type) {
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Bool returns the boolean at key. "true"/"false" strings are accepted.
func (r Record) Bool(key string) bool {
	switch value := r[key].(type) {
	case bool:
		return value
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(value))
		return b
	}
	return false
}

// Strings returns the string elements of the array at key. Never nil.
func (r Record) Strings(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch value := item.(type) {
		case string:
			out = append(out, value)
		case json.Number:
			out = append(out, value.String())
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats the CRM API emits.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Time returns the timestamp at key. Unix milliseconds are accepted alongside ISO strings.
func (r Record) Time(key string) (time.Time, bool) {
	switch value := r[key].(type) {
	case string:
		return ParseTime(value)
	case json.Number:
		ms, err := value.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	case map[string]any:
		return Record(value).Time("$date")
	}
	return time.Time{}, false
}

// TimePtr is Time for optional fields.
func (r Record) TimePtr(key string) *time.Time {
	t, ok := r.Time(key)
	if !ok {
		return nil
	}
	return &t
}

// Record returns the nested object at key, or nil.
func (r Record) Record(key string) Record {
	switch value := r[key].(type) {
	case map[string]any:
		return Record(value)
	case Record:
		return value
	}
	return nil
}

// Records returns the object elements of the array at key. Non-object elements are skipped.
func (r Record) Records(key string) []Record {
	return asRecords(r[key])
}

// Ref reads a reference that is either a bare id or a populated object.
// The label is taken from the first non-empty labelKeys field of a populated object.
func (r Record) Ref(key string, labelKeys ...string) (id, label string) {
	switch value := r[key].(type) {
	case map[string]any:
		nested := Record(value)
		id = nested.ID()
		for _, lk := range labelKeys {
			if s := strings.TrimSpace(nested.String(lk)); s != "" {
				return id, s
			}
		}
		return id, ""
	default:
		return idString(value), ""
	}
}

func asRecords(v any) []Record {
	raw, ok := v.([]any)
	if !ok {
		return []Record{}
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}
