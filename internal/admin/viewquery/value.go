package viewquery

import (
	"cmp"
	"strconv"
	"strings"
	"time"
)

// Kind is the type tag of a Value.
type Kind int

const (
	KindUndefined Kind = iota
	KindString
	KindNumber
	KindTime
	KindBool
)

// Value is a field value read from an entity for searching and sorting.
type Value struct {
	kind Kind
	s    string
	n    float64
	t    time.Time
	b    bool
}

// Undefined is the value of an absent field.
func Undefined() Value { return Value{} }

// String wraps s. An empty string is still defined.
func String(s string) Value { return Value{kind: KindString, s: s} }

// OptionalString is String, except that blank input is Undefined.
func OptionalString(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Undefined()
	}
	return String(s)
}

// Number wraps n.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps n.
func Int(n int) Value { return Number(float64(n)) }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time wraps t. The zero time is Undefined.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Undefined()
	}
	return Value{kind: KindTime, t: t}
}

// TimePtr is Time for optional timestamps.
func TimePtr(t *time.Time) Value {
	if t == nil {
		return Undefined()
	}
	return Time(*t)
}

// Kind returns the type tag.
func (v Value) Kind() Kind { return v.kind }

// Defined reports whether the field was present.
func (v Value) Defined() bool { return v.kind != KindUndefined }

// Text renders v for substring search. Undefined renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindTime:
		return v.t.Format("2006-01-02")
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// compareValues orders two defined values of the same kind. ok is false for mismatched kinds.
func compareValues(a, b Value) (c int, ok bool) {
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.s, b.s), true
	case KindNumber:
		return cmp.Compare(a.n, b.n), true
	case KindTime:
		return a.t.Compare(b.t), true
	case KindBool:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}
