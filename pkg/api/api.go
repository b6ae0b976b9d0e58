// pkg/api/api.go
package api

import (
	"context"
	"fmt"

	"github.com/vexflow/mediaspider/internal/config"
	"github.com/vexflow/mediaspider/internal/extractor"
	"github.com/vexflow/mediaspider/internal/sandbox"
	"github.com/vexflow/mediaspider/internal/transport"
	"github.com/vexflow/mediaspider/pkg/types"
)

// Re-export configuration types for public API consumers.
type Config = config.Config
type TransportConfig = config.TransportConfig
type SandboxConfig = config.SandboxConfig
type OutputConfig = config.OutputConfig

// ResourceLimits bounds a single script context.
type ResourceLimits = sandbox.ResourceLimits

// Client is the high-level entry point: page parsing plus the script
// context lifecycle, backed by a shared HTTP client.
type Client struct {
	config   *config.Config
	client   *transport.Client
	pipeline *extractor.Pipeline
	registry *sandbox.Registry
}

// New creates a client from configuration. A nil config uses
// defaults.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := transport.NewClient(transport.Config{
		Timeout:       cfg.Transport.TimeoutDuration(),
		RetryAttempts: cfg.Transport.RetryAttempts,
		RetryDelay:    cfg.Transport.RetryDelayDuration(),
		UserAgents:    cfg.Transport.UserAgents,
		Headers:       cfg.Transport.Headers,
		RateLimit:     cfg.Transport.RateLimit,
		RateBurst:     cfg.Transport.RateBurst,
	})

	return &Client{
		config:   cfg,
		client:   client,
		pipeline: extractor.NewPipeline(),
		registry: sandbox.NewRegistry(client),
	}, nil
}

// Parse extracts media metadata from an HTML document. It never
// returns an error: degraded results carry their fault in the Error
// field.
func (c *Client) Parse(pageURL, html string) *types.ExtractionResult {
	return c.pipeline.Parse(pageURL, html)
}

// ParseURL fetches the page and parses the response body. Fetch
// failures surface in the result's Error field with empty media
// collections.
func (c *Client) ParseURL(ctx context.Context, pageURL string) *types.ExtractionResult {
	record, err := c.client.Get(ctx, pageURL)
	if err != nil || !record.OK() {
		result := &types.ExtractionResult{
			URL:   pageURL,
			Title: types.DefaultTitle,
			Error: fmt.Sprintf("fetch failed: %s", record.Error),
		}
		result.Normalize()
		return result
	}
	return c.pipeline.Parse(pageURL, record.Data)
}

// Fetch performs a raw HTTP GET and returns the structured response
// record.
func (c *Client) Fetch(ctx context.Context, url string) (types.HTTPResponseRecord, error) {
	return c.client.Get(ctx, url)
}

// CreateContext allocates a script context with the configured
// limits and returns its handle.
func (c *Client) CreateContext() (int64, error) {
	limits := sandbox.ResourceLimits{
		MemoryBytes: c.config.Sandbox.MemoryBytes,
		StackBytes:  c.config.Sandbox.StackBytes,
	}
	return c.registry.CreateContextWithLimits(limits)
}

// CreateContextWithLimits allocates a script context with explicit
// limits.
func (c *Client) CreateContextWithLimits(limits ResourceLimits) (int64, error) {
	return c.registry.CreateContextWithLimits(limits)
}

// DestroyContext releases the context behind the handle.
func (c *Client) DestroyContext(id int64) error {
	return c.registry.DestroyContext(id)
}

// Evaluate runs source in the context and returns the rendered
// completion value.
func (c *Client) Evaluate(id int64, src string) (string, error) {
	return c.registry.Evaluate(id, src)
}

// CallFunction invokes a named global function with JSON-encoded
// arguments.
func (c *Client) CallFunction(id int64, name, jsonArgs string) (string, error) {
	return c.registry.CallFunction(id, name, jsonArgs)
}

// EvaluateString is the string-only boundary form of Evaluate:
// failures come back as "ERROR: ..." strings instead of Go errors.
func (c *Client) EvaluateString(id int64, src string) string {
	return c.registry.EvaluateString(id, src)
}

// CallFunctionString is the string-only boundary form of
// CallFunction.
func (c *Client) CallFunctionString(id int64, name, jsonArgs string) string {
	return c.registry.CallFunctionString(id, name, jsonArgs)
}

// HasFunction reports whether the context defines a callable global
// with the given name.
func (c *Client) HasFunction(id int64, name string) bool {
	return c.registry.HasFunction(id, name)
}

// ContextCount returns the number of live script contexts.
func (c *Client) ContextCount() int {
	return c.registry.Count()
}

// Close destroys all live contexts.
func (c *Client) Close() {
	c.registry.Close()
}
