package media

import (
	"bytes"
	"errors"
	"regexp"
)

var ErrNotSVG = errors.New("not an svg document")

// Applied in order; a stripped foreignObject can no longer smuggle HTML
// handlers past the attribute pass.
var svgStripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<\s*script\b[^>]*/\s*>`),
	regexp.MustCompile(`(?is)<\s*script[\s>].*?<\s*/\s*script\s*>`),
	regexp.MustCompile(`(?is)<\s*foreignObject\b.*?<\s*/\s*foreignObject\s*>`),
	regexp.MustCompile(`(?is)\son[a-z]+\s*=\s*("[^"]*"|'[^']*')`),
	regexp.MustCompile(`(?is)\s(?:xlink:)?href\s*=\s*("\s*javascript:[^"]*"|'\s*javascript:[^']*')`),
}

// SanitizeSVG drops script and foreignObject elements, inline event
// handlers and javascript: links before an SVG is uploaded as media.
func SanitizeSVG(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean := input
	for _, pattern := range svgStripPatterns {
		clean = pattern.ReplaceAll(clean, nil)
	}
	return clean, nil
}
