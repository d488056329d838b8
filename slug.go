package shire

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slugify converts a title to a URL-safe slug: lower-case, every run of
// characters outside [a-z0-9] becomes a single hyphen, and a leading or
// trailing hyphen is dropped. It never disambiguates; the Store does that.
//
// Lower-casing uses the full Unicode mapping, so "İ" becomes "i" plus a
// combining dot and "İstanbul" slugs to "i-stanbul".
func Slugify(s string) string {
	s = cases.Lower(language.Und).String(s)
	var b strings.Builder
	b.Grow(len(s))
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	out := strings.TrimPrefix(b.String(), "-")
	return strings.TrimSuffix(out, "-")
}
