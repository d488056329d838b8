package markdown

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^md-[a-z0-9-]+$`)).Globally()
	return p
}

// Sanitize strips scripts, event handlers and unsafe URLs from html while
// keeping the markup RenderPreview produces.
func Sanitize(html string) string {
	return policy.Sanitize(html)
}

// RenderSafe is RenderPreview followed by Sanitize.
func RenderSafe(md string) string {
	return Sanitize(RenderPreview(md))
}
