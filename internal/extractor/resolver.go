// internal/extractor/resolver.go
package extractor

import (
	"regexp"
	"strings"
)

var schemeHostPattern = regexp.MustCompile(`https?://[^/]+`)

// Resolve converts a candidate URL into an absolute one against a base
// document URL. Pure string manipulation, no I/O. Precedence:
// absolute > protocol-relative > root-relative > path-relative; a base
// without any path slash leaves the candidate unchanged.
func Resolve(candidate, baseURL string) string {
	if strings.HasPrefix(candidate, "http") {
		return candidate
	}

	if strings.HasPrefix(candidate, "//") {
		return "https:" + candidate
	}

	if strings.HasPrefix(candidate, "/") {
		if host := schemeHostPattern.FindString(baseURL); host != "" {
			return host + candidate
		}
	}

	if i := strings.LastIndex(baseURL, "/"); i >= 0 {
		return baseURL[:i+1] + candidate
	}

	return candidate
}
