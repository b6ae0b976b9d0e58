// internal/selector/selector.go

// Package selector provides lightweight HTML node selection for script
// code. It sits beside the regex extraction engine: scripts that know
// a site's structure can ask for specific nodes instead of pattern
// scanning the whole document.
package selector

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is one selected element: its text content, outer HTML and
// attribute map.
type Node struct {
	Text       string            `json:"text"`
	HTML       string            `json:"html"`
	Attributes map[string]string `json:"attributes"`
}

// Select returns every node matched by a CSS selector. Malformed
// markup is tolerated; a selector that matches nothing, or any
// internal failure, yields an empty slice rather than an error.
func Select(html, css string) []Node {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var nodes []Node
	doc.Find(css).Each(func(_ int, s *goquery.Selection) {
		outer, err := goquery.OuterHtml(s)
		if err != nil {
			outer = ""
		}
		attrs := make(map[string]string)
		if len(s.Nodes) > 0 {
			for _, a := range s.Nodes[0].Attr {
				attrs[a.Key] = a.Val
			}
		}
		nodes = append(nodes, Node{
			Text:       s.Text(),
			HTML:       outer,
			Attributes: attrs,
		})
	})
	return nodes
}

// SelectXPath supports the `//tag` form (with an optional, ignored
// predicate) by degrading it to a tag-name query. Other expressions
// match nothing.
func SelectXPath(html, xpath string) []Node {
	if !strings.HasPrefix(xpath, "//") {
		return nil
	}
	tag := strings.TrimPrefix(xpath, "//")
	if i := strings.Index(tag, "["); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return nil
	}
	return Select(html, tag)
}

// StripTags returns the text content of a fragment with all markup
// removed.
func StripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return doc.Text()
}

// MarshalNodes encodes nodes as a JSON array, "[]" when empty or on
// any encoding failure. This is the shape handed back to scripts.
func MarshalNodes(nodes []Node) string {
	if len(nodes) == 0 {
		return "[]"
	}
	for i := range nodes {
		if nodes[i].Attributes == nil {
			nodes[i].Attributes = map[string]string{}
		}
	}
	data, err := json.Marshal(nodes)
	if err != nil {
		return "[]"
	}
	return string(data)
}
