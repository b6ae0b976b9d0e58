// internal/transport/client_test.go
package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDoSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{})
	record := client.Do(context.Background(), Request{URL: server.URL})

	if record.Status != http.StatusOK {
		t.Errorf("expected status 200, got %d", record.Status)
	}
	if record.Data != `{"ok":true}` {
		t.Errorf("unexpected body %q", record.Data)
	}
	if record.ContentType != "application/json" {
		t.Errorf("unexpected content type %q", record.ContentType)
	}
	if record.Error != "" {
		t.Errorf("unexpected error %q", record.Error)
	}
	if !record.OK() {
		t.Error("record should report OK")
	}
}

func TestDoTransportFailure(t *testing.T) {
	client := NewClient(Config{})

	// Nothing listens here
	record := client.Do(context.Background(), Request{URL: "http://127.0.0.1:1/unreachable"})

	if record.Status != -1 {
		t.Errorf("expected status -1 on transport failure, got %d", record.Status)
	}
	if !strings.HasPrefix(record.Data, "ERROR: ") {
		t.Errorf("expected ERROR: data prefix, got %q", record.Data)
	}
	if record.Error == "" {
		t.Error("expected error text on transport failure")
	}
	if record.OK() {
		t.Error("failure record must not report OK")
	}
	if record.Headers == nil {
		t.Error("headers must be non-nil even on failure")
	}
}

func TestDoProtocolErrorIsNotTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{})
	record := client.Do(context.Background(), Request{URL: server.URL})

	if record.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", record.Status)
	}
	if record.Error != "" {
		t.Errorf("protocol errors must not set the error field, got %q", record.Error)
	}
	if !record.OK() {
		t.Error("a 404 is still a completed exchange")
	}
}

func TestDoSendsHeadersAndBody(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Custom")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer server.Close()

	client := NewClient(Config{})
	client.Do(context.Background(), Request{
		URL:     server.URL,
		Method:  "POST",
		Body:    `{"a":1}`,
		Headers: map[string]string{"X-Custom": "yes"},
	})

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotHeader != "yes" {
		t.Errorf("custom header not forwarded, got %q", gotHeader)
	}
	if gotBody != `{"a":1}` {
		t.Errorf("body not forwarded, got %q", gotBody)
	}
}

func TestDoRequestHeadersOverrideClientHeaders(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Accept")
	}))
	defer server.Close()

	client := NewClient(Config{Headers: map[string]string{"Accept": "text/html"}})
	client.Do(context.Background(), Request{
		URL:     server.URL,
		Headers: map[string]string{"Accept": "application/json"},
	})

	if got != "application/json" {
		t.Errorf("request header should win, got %q", got)
	}
}

func TestDoPerRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(Config{})
	record := client.Do(context.Background(), Request{URL: server.URL, TimeoutMs: 50})

	if record.Status != -1 {
		t.Errorf("expected timeout failure, got status %d", record.Status)
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", http.MethodGet},
		{"get", http.MethodGet},
		{"post", http.MethodPost},
		{"PUT", http.MethodPut},
		{"delete", http.MethodDelete},
		{"head", http.MethodHead},
		{"PATCH", http.MethodGet},
		{"nonsense", http.MethodGet},
	}
	for _, tt := range tests {
		if got := normalizeMethod(tt.in); got != tt.expected {
			t.Errorf("normalizeMethod(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := NewClient(Config{RetryAttempts: 3, RetryDelay: 10 * time.Millisecond})
	record, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if record.Data != "recovered" {
		t.Errorf("unexpected body %q", record.Data)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestUserAgentRotation(t *testing.T) {
	var agents []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	client := NewClient(Config{UserAgents: []string{"ua-one", "ua-two"}})
	for i := 0; i < 3; i++ {
		client.Do(context.Background(), Request{URL: server.URL})
	}

	expected := []string{"ua-one", "ua-two", "ua-one"}
	for i, want := range expected {
		if agents[i] != want {
			t.Errorf("request %d: expected UA %q, got %q", i, want, agents[i])
		}
	}
}
