package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyPattern is returned by [CompilePattern] for an empty pattern.
var ErrEmptyPattern = errors.New("condition: empty route pattern")

// Pattern is a compiled route pattern.
//
// A segment of "*" matches exactly one non-empty path segment; a "*" inside
// a segment matches any run of characters other than "/". A segment of "**"
// matches any number of segments, including zero. Matching is anchored
// against the whole path.
type Pattern struct {
	src string
	re  *regexp.Regexp
}

// CompilePattern parses a route pattern such as "/users/*/settings" or
// "/dashboard/**".
func CompilePattern(p string) (*Pattern, error) {
	if p == "" {
		return nil, ErrEmptyPattern
	}

	segs := strings.Split(p, "/")
	var b strings.Builder
	b.WriteByte('^')

	skipSep := false
	for i, seg := range segs {
		if seg == "**" {
			switch {
			case len(segs) == 1:
				b.WriteString(".*")
			case i == 0:
				b.WriteString("(?:[^/]*/)*")
				skipSep = true
			default:
				b.WriteString("(?:/[^/]*)*")
			}
			continue
		}

		if i > 0 && !skipSep {
			b.WriteByte('/')
		}
		skipSep = false
		b.WriteString(segmentExpr(seg))
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("condition: compile route pattern %q: %w", p, err)
	}
	return &Pattern{src: p, re: re}, nil
}

func segmentExpr(seg string) string {
	if seg == "*" {
		return "[^/]+"
	}
	parts := strings.Split(seg, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return strings.Join(parts, "[^/]*")
}

// MustCompilePattern is like [CompilePattern] but panics on error.
func MustCompilePattern(p string) *Pattern {
	pat, err := CompilePattern(p)
	if err != nil {
		panic(err)
	}
	return pat
}

// Match reports whether path matches the whole pattern.
func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(path)
}

// String returns the pattern's source text.
func (p *Pattern) String() string {
	return p.src
}
