// Package ignore compiles glob-pattern exclusion rules used while hashing a
// directory tree. Patterns are matched against paths relative to the hash
// root; callers must pre-strip any root prefix before calling IsIgnored.
package ignore

import (
	"bufio"
	"strings"

	"github.com/gobwas/glob"
)

// Rules is an ordered list of compiled glob patterns. Immutable after
// construction.
type Rules struct {
	patterns []glob.Glob
}

// New compiles an ignore file from text: one pattern per line, blank lines
// and '#'-prefixed comment lines skipped. A line that fails to compile as a
// glob is silently dropped rather than raising an error — a malformed
// ignore file should degrade to matching less, not abort the build.
func New(data []byte) *Rules {
	r := &Rules{}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g, err := glob.Compile(line, '/')
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, g)
	}
	return r
}

// Empty returns a Rules with no patterns; every path is kept.
func Empty() *Rules {
	return &Rules{}
}

// IsIgnored reports whether path matches any compiled pattern.
func (r *Rules) IsIgnored(path string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}
