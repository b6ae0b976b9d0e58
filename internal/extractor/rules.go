// internal/extractor/rules.go
package extractor

import "regexp"

// Policy selects how a rule chain combines its matches.
type Policy int

const (
	// PolicyFirstMatch stops at the first rule whose match passes the
	// chain's filters. Used for single-valued fields.
	PolicyFirstMatch Policy = iota
	// PolicyAllMatches collects every match of every rule, keeping the
	// first occurrence of each value. Used for URL collections.
	PolicyAllMatches
)

// Rule is one pattern matcher in a chain. Group is the capture group
// holding the extracted value.
type Rule struct {
	Pattern *regexp.Regexp
	Group   int
}

// RuleChain is an ordered list of matchers for one output field. The
// declaration order is the precedence order.
type RuleChain struct {
	Field  string
	Policy Policy
	Rules  []Rule
}

// MetadataRule binds a metadata key to its matcher. Each key yields at
// most one entry.
type MetadataRule struct {
	Key  string
	Rule Rule
}

var titleChain = RuleChain{
	Field:  "title",
	Policy: PolicyFirstMatch,
	Rules: []Rule{
		{Pattern: regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)<h1[^>]*>([^<]+)</h1>`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)<h2[^>]*>([^<]+)</h2>`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)title["\s]*[:=]["\s]*["']([^"']+)`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)name["\s]*[:=]["\s]*["']([^"']+)`), Group: 1},
	},
}

var thumbnailChain = RuleChain{
	Field:  "thumbnail",
	Policy: PolicyFirstMatch,
	Rules: []Rule{
		{Pattern: regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)poster=["']([^"']+)`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)thumbnail["\s]*[:=]["\s]*["']([^"']+)`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)cover["\s]*[:=]["\s]*["']([^"']+)`), Group: 1},
	},
}

// Play URL patterns require an explicit scheme, so matches are already
// absolute and bypass resolution.
var playURLChain = RuleChain{
	Field:  "playUrls",
	Policy: PolicyAllMatches,
	Rules: []Rule{
		{Pattern: regexp.MustCompile(`(https?://[^"'\s]+\.m3u8[^"'\s]*)`), Group: 1},
		{Pattern: regexp.MustCompile(`(https?://[^"'\s]+\.mp4[^"'\s]*)`), Group: 1},
		{Pattern: regexp.MustCompile(`(https?://[^"'\s]+\.flv[^"'\s]*)`), Group: 1},
		{Pattern: regexp.MustCompile(`(https?://[^"'\s]+\.avi[^"'\s]*)`), Group: 1},
		{Pattern: regexp.MustCompile(`(https?://[^"'\s]+\.mkv[^"'\s]*)`), Group: 1},
		{Pattern: regexp.MustCompile(`src=["']([^"']+\.m3u8[^"']*)`), Group: 1},
		{Pattern: regexp.MustCompile(`src=["']([^"']+\.mp4[^"']*)`), Group: 1},
		{Pattern: regexp.MustCompile(`url["\s]*[:=]["\s]*["']([^"']+\.m3u8[^"']*)`), Group: 1},
		{Pattern: regexp.MustCompile(`url["\s]*[:=]["\s]*["']([^"']+\.mp4[^"']*)`), Group: 1},
	},
}

// Download URLs may be relative and pass through resolution.
var downloadURLChain = RuleChain{
	Field:  "downloadUrls",
	Policy: PolicyAllMatches,
	Rules: []Rule{
		{Pattern: regexp.MustCompile(`(?i)download["\s]*[:=]["\s]*["']([^"']+)`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)href=["']([^"']+\.mp4[^"']*)`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)href=["']([^"']+\.avi[^"']*)`), Group: 1},
		{Pattern: regexp.MustCompile(`(?i)href=["']([^"']+\.mkv[^"']*)`), Group: 1},
	},
}

var metadataRules = []MetadataRule{
	{Key: "duration", Rule: Rule{Pattern: regexp.MustCompile(`(?i)duration["\s]*[:=]["\s]*["']?([^"',\s]+)`), Group: 1}},
	{Key: "quality", Rule: Rule{Pattern: regexp.MustCompile(`(?i)quality["\s]*[:=]["\s]*["']?([^"',\s]+)`), Group: 1}},
	{Key: "format", Rule: Rule{Pattern: regexp.MustCompile(`(?i)format["\s]*[:=]["\s]*["']?([^"',\s]+)`), Group: 1}},
	{Key: "size", Rule: Rule{Pattern: regexp.MustCompile(`(?i)size["\s]*[:=]["\s]*["']?([^"',\s]+)`), Group: 1}},
	{Key: "bitrate", Rule: Rule{Pattern: regexp.MustCompile(`(?i)bitrate["\s]*[:=]["\s]*["']?([^"',\s]+)`), Group: 1}},
	{Key: "fps", Rule: Rule{Pattern: regexp.MustCompile(`(?i)fps["\s]*[:=]["\s]*["']?([^"',\s]+)`), Group: 1}},
}

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	imageURLPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|webp)(\?|$)`)
)

// mediaExtensions are the recognized playable container suffixes.
var mediaExtensions = []string{".m3u8", ".mp4", ".flv", ".avi", ".mkv"}
