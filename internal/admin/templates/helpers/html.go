package helpers

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// HTML writes markup for hand-built templ components. Text and attribute values are escaped.
// The first write error sticks and is reported by Err.
type HTML struct {
	w   io.Writer
	err error
}

// NewHTML wraps w.
func NewHTML(w io.Writer) *HTML {
	return &HTML{w: w}
}

// Raw writes trusted markup verbatim.
func (h *HTML) Raw(markup string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, markup)
}

// Text writes escaped text.
func (h *HTML) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Int writes n.
func (h *HTML) Int(n int) {
	h.Raw(strconv.Itoa(n))
}

// Attr writes ` name="value"` with value escaped.
func (h *HTML) Attr(name, value string) {
	h.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// BoolAttr writes ` name` when on is true.
func (h *HTML) BoolAttr(name string, on bool) {
	if on {
		h.Raw(" " + name)
	}
}

// Open writes `<tag` followed by attrs given as name/value pairs, then `>`.
func (h *HTML) Open(tag string, attrs ...string) {
	h.Raw("<" + tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		h.Attr(attrs[i], attrs[i+1])
	}
	h.Raw(">")
}

// Close writes `</tag>`.
func (h *HTML) Close(tag string) {
	h.Raw("</" + tag + ">")
}

// Element writes an element whose body is escaped text.
func (h *HTML) Element(tag, text string, attrs ...string) {
	h.Open(tag, attrs...)
	h.Text(text)
	h.Close(tag)
}

// Render writes a nested component.
func (h *HTML) Render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Err returns the first write error.
func (h *HTML) Err() error {
	return h.err
}

// Component adapts a writer function into a templ.Component.
func Component(fn func(ctx context.Context, h *HTML)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := NewHTML(w)
		fn(ctx, h)
		return h.Err()
	})
}
