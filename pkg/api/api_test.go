// pkg/api/api_test.go
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vexflow/mediaspider/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestParse(t *testing.T) {
	client := newTestClient(t)

	html := `<title>Stream Page</title><video src="https://cdn.test/v.m3u8">`
	result := client.Parse("https://example.com/watch", html)

	if result.Title != "Stream Page" {
		t.Errorf("unexpected title %q", result.Title)
	}
	if len(result.PlayURLs) != 1 {
		t.Errorf("unexpected play URLs %v", result.PlayURLs)
	}
	if result.Error != "" {
		t.Errorf("unexpected error %q", result.Error)
	}
}

func TestParseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<title>Fetched Page</title>`))
	}))
	defer server.Close()

	client := newTestClient(t)
	result := client.ParseURL(context.Background(), server.URL)

	if result.Title != "Fetched Page" {
		t.Errorf("unexpected title %q", result.Title)
	}
	if result.URL != server.URL {
		t.Errorf("unexpected url %q", result.URL)
	}
}

func TestParseURLFetchFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.RetryAttempts = 1
	cfg.Transport.RetryDelayMs = 10

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	result := client.ParseURL(context.Background(), "http://127.0.0.1:1/down")

	if result.Error == "" {
		t.Fatal("expected a fetch error")
	}
	if result.Title != "unknown title" {
		t.Errorf("expected sentinel title, got %q", result.Title)
	}
	if result.PlayURLs == nil || result.Metadata == nil {
		t.Error("degraded results must still carry non-nil collections")
	}
}

func TestScriptContextLifecycle(t *testing.T) {
	client := newTestClient(t)

	id, err := client.CreateContext()
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}
	if id != 1 {
		t.Errorf("expected first handle 1, got %d", id)
	}
	if client.ContextCount() != 1 {
		t.Errorf("expected 1 live context, got %d", client.ContextCount())
	}

	got, err := client.Evaluate(id, "6 * 7")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got != "42" {
		t.Errorf("expected 42, got %q", got)
	}

	if err := client.DestroyContext(id); err != nil {
		t.Fatalf("destroy failed: %v", err)
	}
	if client.ContextCount() != 0 {
		t.Errorf("expected 0 live contexts, got %d", client.ContextCount())
	}
}

func TestScriptFunctions(t *testing.T) {
	client := newTestClient(t)

	id, err := client.CreateContext()
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}

	_, err = client.Evaluate(id, `function extract(args) { return args.page + ":ok"; }`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if !client.HasFunction(id, "extract") {
		t.Error("expected extract to be reported")
	}

	got, err := client.CallFunction(id, "extract", `{"page": "p1"}`)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if got != "p1:ok" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestStringBoundary(t *testing.T) {
	client := newTestClient(t)
	id, _ := client.CreateContext()

	if got := client.EvaluateString(id, `"fine"`); got != "fine" {
		t.Errorf("unexpected result %q", got)
	}
	if got := client.EvaluateString(id, "nope("); !strings.HasPrefix(got, "ERROR: ") {
		t.Errorf("expected ERROR: prefix, got %q", got)
	}
	if got := client.CallFunctionString(id, "ghost", "{}"); !strings.HasPrefix(got, "ERROR: ") {
		t.Errorf("expected ERROR: prefix, got %q", got)
	}
}

func TestCreateContextWithLimits(t *testing.T) {
	client := newTestClient(t)

	id, err := client.CreateContextWithLimits(ResourceLimits{
		MemoryBytes: 8 << 20,
		StackBytes:  128 << 10,
	})
	if err != nil {
		t.Fatalf("failed to create limited context: %v", err)
	}
	if _, err := client.Evaluate(id, "1 + 1"); err != nil {
		t.Errorf("limited context unusable: %v", err)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := &Config{}
	cfg.Output.Format = "bogus"

	if _, err := New(cfg); err == nil {
		t.Error("expected an error for invalid configuration")
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw"))
	}))
	defer server.Close()

	client := newTestClient(t)
	record, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if record.Data != "raw" {
		t.Errorf("unexpected body %q", record.Data)
	}
}
