// internal/extractor/pipeline.go
package extractor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vexflow/mediaspider/internal/monitoring"
	"github.com/vexflow/mediaspider/pkg/types"
)

// Pipeline runs the full extraction pass over one document and builds
// the result record. It is stateless and safe for concurrent use.
type Pipeline struct{}

// NewPipeline creates an extraction pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Parse extracts title, thumbnail, URL collections and metadata from a
// document. The elapsed time is measured around the whole pass and
// recorded on both success and failure. Internal faults are reported
// through the result's error field; Parse never panics outward.
func (p *Pipeline) Parse(pageURL, html string) *types.ExtractionResult {
	start := time.Now()

	result := &types.ExtractionResult{
		URL:          pageURL,
		PlayURLs:     []string{},
		DownloadURLs: []string{},
		Metadata:     map[string]string{},
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("extraction fault: %v", r)
			result.PlayURLs = []string{}
			result.DownloadURLs = []string{}
			result.Metadata = map[string]string{}
		}
		if result.Title == "" {
			result.Title = types.DefaultTitle
		}
		result.ParseTime = time.Since(start).Milliseconds()
		monitoring.ObserveParse(time.Since(start), result.Error == "")
	}()

	// Only a missing document is unreadable. Byte content is never
	// rejected: pages in legacy encodings still carry ASCII-clean
	// markup the rule chains can extract from.
	if html == "" {
		result.Error = "unreadable document: empty input"
		return result
	}

	ex := New(html, pageURL)
	result.Title = ex.Title()
	result.Content = html
	result.Thumbnail = ex.Thumbnail()
	result.PlayURLs = ex.PlayURLs()
	result.DownloadURLs = ex.DownloadURLs()
	result.Metadata = ex.Metadata()
	result.Normalize()

	log.Debug().
		Str("url", pageURL).
		Str("title", result.Title).
		Int("play_urls", len(result.PlayURLs)).
		Msg("document parsed")

	return result
}
