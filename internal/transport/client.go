// internal/transport/client.go
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/vexflow/mediaspider/internal/monitoring"
	"github.com/vexflow/mediaspider/pkg/types"
)

const (
	// DefaultTimeoutMs bounds a request when the caller supplies none.
	DefaultTimeoutMs = 15000
	// MaxRedirects caps redirect following per request.
	MaxRedirects = 5

	connectTimeout   = 10 * time.Second
	defaultUserAgent = "MediaSpider/1.0"
)

// Request describes one HTTP exchange. Method defaults to GET;
// anything outside the supported verb set degrades to GET.
type Request struct {
	URL       string
	Method    string
	Body      string
	Headers   map[string]string
	TimeoutMs int64
}

// Config defines client construction options.
type Config struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	UserAgents    []string
	Headers       map[string]string
	RateLimit     float64 // requests per second, 0 disables limiting
	RateBurst     int
}

// Client performs HTTP requests on behalf of the extraction CLI and
// the script bridge. Redirects, TLS and connection pooling live here;
// callers only see structured response records.
type Client struct {
	httpClient     *http.Client
	userAgents     []string
	currentUA      int
	uaMutex        sync.Mutex
	rateLimiter    *rate.Limiter
	retryAttempts  int
	retryDelay     time.Duration
	headers        map[string]string
	defaultTimeout time.Duration
}

// NewClient creates an HTTP client with the specified configuration.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeoutMs * time.Millisecond
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = []string{defaultUserAgent}
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst == 0 {
			burst = 5
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	// Per-request deadlines come from the request context; a client-wide
	// Timeout would cap long explicit timeouts from script code.
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}

	return &Client{
		httpClient:     httpClient,
		userAgents:     config.UserAgents,
		rateLimiter:    limiter,
		retryAttempts:  config.RetryAttempts,
		retryDelay:     config.RetryDelay,
		headers:        config.Headers,
		defaultTimeout: config.Timeout,
	}
}

// Do performs one HTTP exchange and always returns a record: protocol
// outcomes carry the numeric status, transport failures carry status
// -1 and the failure text. It never returns a Go error so script-side
// logic can branch on status alone.
func (c *Client) Do(ctx context.Context, req Request) types.HTTPResponseRecord {
	start := time.Now()

	method := normalizeMethod(req.Method)
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	if req.TimeoutMs <= 0 {
		timeout = c.defaultTimeout
	}

	record := c.perform(ctx, method, req, timeout)
	record.ElapsedMs = time.Since(start).Milliseconds()
	monitoring.ObserveBridgeRequest(method, record.Status, time.Since(start))
	return record
}

func (c *Client) perform(ctx context.Context, method string, req Request, timeout time.Duration) types.HTTPResponseRecord {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != "" {
		bodyReader = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return failureRecord(err)
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.nextUserAgent())
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().Str("method", method).Str("url", req.URL).Err(err).Msg("transport failure")
		return failureRecord(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureRecord(fmt.Errorf("reading response body: %w", err))
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return types.HTTPResponseRecord{
		Status:      resp.StatusCode,
		Data:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     headers,
	}
}

// Get fetches a URL with the retry policy. This is the CLI fetch path;
// the bridge path (Do) performs exactly one attempt because retry
// policy belongs to the script author there.
func (c *Client) Get(ctx context.Context, url string) (types.HTTPResponseRecord, error) {
	var record types.HTTPResponseRecord
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return failureRecord(err), fmt.Errorf("rate limiter: %w", err)
			}
		}

		record = c.Do(ctx, Request{URL: url, Method: http.MethodGet})
		if record.OK() && record.Status < 500 {
			return record, nil
		}

		if attempt < c.retryAttempts {
			select {
			case <-ctx.Done():
				return record, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt+1)):
			}
		}
	}
	if !record.OK() {
		return record, fmt.Errorf("request failed after %d attempts: %s", c.retryAttempts+1, record.Error)
	}
	return record, nil
}

func (c *Client) nextUserAgent() string {
	c.uaMutex.Lock()
	defer c.uaMutex.Unlock()
	ua := c.userAgents[c.currentUA%len(c.userAgents)]
	c.currentUA++
	return ua
}

func failureRecord(err error) types.HTTPResponseRecord {
	return types.HTTPResponseRecord{
		Status:  -1,
		Data:    "ERROR: " + err.Error(),
		Error:   err.Error(),
		Headers: map[string]string{},
	}
}

// normalizeMethod maps the supported verb set; anything else is GET.
func normalizeMethod(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return http.MethodPost
	case http.MethodPut:
		return http.MethodPut
	case http.MethodDelete:
		return http.MethodDelete
	case http.MethodHead:
		return http.MethodHead
	default:
		return http.MethodGet
	}
}
