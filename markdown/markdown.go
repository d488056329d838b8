// Package markdown implements the post editor's markdown dialect: the toolbar
// insertion algorithm, the ordered-substitution preview renderer, HTML
// sanitizing for everything that is served, and plain-text helpers used for
// summaries and reading time.
package markdown

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Markdown returns a templ.Component that renders md as sanitized HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, RenderSafe(content))
		return err
	})
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags,
// so that formatting regexes never touch URLs inside href attributes, etc.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}
