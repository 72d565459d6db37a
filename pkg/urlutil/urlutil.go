package urlutil

import (
	"net/url"
	"strings"
)

// Host returns the lower-cased authority of rawURL, or "" when the URL
// cannot be parsed or carries no host.
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Context-free: does not depend on crawl history
func Host(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return lowerASCII(parsed.Host)
}

// SameDomain reports whether linkHost belongs to the registrable domain
// anchored at seedHost. Both must be non-empty; a match is either exact
// equality or a strict "."+seedHost suffix, so "api.monzo.com" matches
// the seed "monzo.com" while "evilmonzo.com" does not.
//
// No public-suffix-list semantics; the caller owns the choice of seed.
func SameDomain(seedHost, linkHost string) bool {
	if seedHost == "" || linkHost == "" {
		return false
	}
	if linkHost == seedHost {
		return true
	}
	return strings.HasSuffix(linkHost, "."+seedHost)
}

// lowerASCII converts ASCII characters to lowercase. A string with no
// uppercase ASCII letter is returned as is, without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
