package store

import (
	"regexp"
	"strings"
)

// isPattern reports whether key must be treated as a pattern rather than a
// literal key: containing *, ?, or wrapped in /…/.
func isPattern(key string) bool {
	if len(key) >= 2 && strings.HasPrefix(key, "/") && strings.HasSuffix(key, "/") {
		return true
	}
	return strings.ContainsAny(key, "*?")
}

// compilePattern turns key into an anchored regexp: a /…/-wrapped string is
// a literal regex body; anything else has every regex metacharacter except
// * and ? escaped, then * → .* and ? → ., anchored with ^…$.
func compilePattern(key string) (*regexp.Regexp, error) {
	if len(key) >= 2 && strings.HasPrefix(key, "/") && strings.HasSuffix(key, "/") {
		return regexp.Compile(key[1 : len(key)-1])
	}

	var b strings.Builder
	b.WriteByte('^')
	for _, r := range key {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '.', '+', '^', '$', '{', '}', '(', ')', '|', '[', ']', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}
