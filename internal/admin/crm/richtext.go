package crm

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	ugc      = bluemonday.UGCPolicy()
	strict   = bluemonday.StrictPolicy()
)

// RenderMarkdown converts staff-authored markdown to sanitized HTML.
func RenderMarkdown(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return ugc.Sanitize(src)
	}
	return strings.TrimSpace(ugc.Sanitize(buf.String()))
}

// PlainText strips every tag from s. The result is raw text; escaping happens when it is rendered.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
