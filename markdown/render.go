package markdown

import (
	"regexp"
	"strings"
)

var (
	reBold   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic = regexp.MustCompile(`\*([^*\n]+)\*`)
	reH2     = regexp.MustCompile(`(?m)^## (.*)$`)
	reH3     = regexp.MustCompile(`(?m)^### (.*)$`)
	reQuote  = regexp.MustCompile(`(?m)^> (.*)$`)
	reLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reImage  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	reItem   = regexp.MustCompile(`(?m)^- (.*)$`)
)

// RenderPreview converts the editor's markdown subset to HTML by applying, in
// order: bold, italic, level-2 and level-3 headings, blockquotes, links,
// images, list items and line breaks.
//
// Inline rules only rewrite text outside tags, so output of an earlier rule is
// never re-matched. Nothing is escaped: raw HTML in md passes through. Use
// RenderSafe for anything sent to a browser.
func RenderPreview(md string) string {
	s := strings.ReplaceAll(md, "\r\n", "\n")

	s = ApplyOutsideTags(s, func(seg string) string {
		return reBold.ReplaceAllString(seg, "<strong>$1</strong>")
	})
	s = ApplyOutsideTags(s, func(seg string) string {
		return reItalic.ReplaceAllString(seg, "<em>$1</em>")
	})
	s = reH2.ReplaceAllString(s, `<h2 class="md-h2">$1</h2>`)
	s = reH3.ReplaceAllString(s, `<h3 class="md-h3">$1</h3>`)
	s = reQuote.ReplaceAllString(s, `<blockquote class="md-quote">$1</blockquote>`)
	s = ApplyOutsideTags(s, replaceLinks)
	s = ApplyOutsideTags(s, func(seg string) string {
		return reImage.ReplaceAllString(seg, `<img src="$2" alt="$1" class="md-img"/>`)
	})
	s = reItem.ReplaceAllString(s, `<li class="md-li">• $1</li>`)
	return strings.ReplaceAll(s, "\n", "<br/>")
}

// replaceLinks rewrites [label](url) but leaves ![alt](url) for the image rule.
func replaceLinks(seg string) string {
	matches := reLink.FindAllStringSubmatchIndex(seg, -1)
	if matches == nil {
		return seg
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] > 0 && seg[m[0]-1] == '!' {
			continue
		}
		b.WriteString(seg[last:m[0]])
		b.WriteString(`<a href="`)
		b.WriteString(seg[m[4]:m[5]])
		b.WriteString(`" class="md-link">`)
		b.WriteString(seg[m[2]:m[3]])
		b.WriteString(`</a>`)
		last = m[1]
	}
	b.WriteString(seg[last:])
	return b.String()
}
