// internal/extractor/extractor.go
package extractor

import (
	"strings"

	"github.com/vexflow/mediaspider/pkg/types"
)

// Extractor applies the rule chains to one raw HTML document. It works
// on the document text directly and never builds a DOM: the pages it
// targets are rarely well-formed enough for one.
type Extractor struct {
	html    string
	baseURL string
}

// New creates an extractor for a document and its base URL.
func New(html, baseURL string) *Extractor {
	return &Extractor{html: html, baseURL: baseURL}
}

// Title returns the first title candidate longer than two characters
// after markup stripping, or the sentinel when no rule qualifies.
func (e *Extractor) Title() string {
	for _, rule := range titleChain.Rules {
		m := rule.Pattern.FindStringSubmatch(e.html)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(StripTags(m[rule.Group]))
		if len(title) > 2 {
			return title
		}
	}
	return types.DefaultTitle
}

// Thumbnail returns the first candidate with a recognized image
// extension, resolved to an absolute URL, or "" when none qualifies.
func (e *Extractor) Thumbnail() string {
	for _, rule := range thumbnailChain.Rules {
		m := rule.Pattern.FindStringSubmatch(e.html)
		if m == nil {
			continue
		}
		candidate := m[rule.Group]
		if imageURLPattern.MatchString(candidate) {
			return Resolve(candidate, e.baseURL)
		}
	}
	return ""
}

// PlayURLs collects every playable stream URL found by the play chain.
// The patterns require an explicit scheme, so values are used as-is.
func (e *Extractor) PlayURLs() []string {
	return e.collect(playURLChain, false)
}

// DownloadURLs collects download candidates; these may be relative, so
// every match passes through URL resolution before insertion.
func (e *Extractor) DownloadURLs() []string {
	return e.collect(downloadURLChain, true)
}

// collect runs an all-matches chain with order-preserving
// de-duplication on the final (possibly resolved) value.
func (e *Extractor) collect(chain RuleChain, resolve bool) []string {
	var urls []string
	seen := make(map[string]struct{})
	for _, rule := range chain.Rules {
		for _, m := range rule.Pattern.FindAllStringSubmatch(e.html, -1) {
			u := m[rule.Group]
			if resolve {
				u = Resolve(u, e.baseURL)
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}

// Metadata probes each known key independently; a present key
// contributes exactly one entry.
func (e *Extractor) Metadata() map[string]string {
	meta := make(map[string]string)
	for _, mr := range metadataRules {
		if m := mr.Rule.Pattern.FindStringSubmatch(e.html); m != nil {
			meta[mr.Key] = m[mr.Rule.Group]
		}
	}
	return meta
}

// StripTags removes anything that looks like markup from a fragment.
func StripTags(fragment string) string {
	return htmlTagPattern.ReplaceAllString(fragment, "")
}

// ValidatePlayURL reports whether a string is an absolute URL pointing
// at a recognized media container.
func ValidatePlayURL(url string) bool {
	if !strings.HasPrefix(url, "http") {
		return false
	}
	for _, ext := range mediaExtensions {
		if strings.Contains(url, ext) {
			return true
		}
	}
	return false
}
