package blog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 50

var (
	slugPattern    = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s_-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugDashRun    = regexp.MustCompile(`-+`)
)

// Slugify lowercases, folds accents away and keeps [a-z0-9_-]. Letters
// outside ASCII are dropped, so a Persian-only name yields "".
func Slugify(s string) string {
	decomposed := norm.NFKD.String(strings.ToLower(s))
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := slugDisallowed.ReplaceAllString(b.String(), "")
	out = strings.TrimSpace(out)
	out = slugWhitespace.ReplaceAllString(out, "-")
	out = slugDashRun.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-_")
	if len(out) > maxSlugLen {
		out = strings.Trim(out[:maxSlugLen], "-_")
	}
	return out
}

func ValidSlug(s string) bool {
	return len(s) <= maxSlugLen && slugPattern.MatchString(s)
}
