// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Transport.TimeoutMs != 15000 {
		t.Errorf("expected default timeout 15000ms, got %d", cfg.Transport.TimeoutMs)
	}
	if cfg.Sandbox.MemoryBytes != 32<<20 {
		t.Errorf("expected default memory 32MiB, got %d", cfg.Sandbox.MemoryBytes)
	}
	if cfg.Sandbox.StackBytes != 512<<10 {
		t.Errorf("expected default stack 512KiB, got %d", cfg.Sandbox.StackBytes)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected default format json, got %q", cfg.Output.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadFromBytes(t *testing.T) {
	yaml := `
transport:
  timeout_ms: 5000
  retry_attempts: 2
sandbox:
  memory_bytes: 16777216
output:
  format: csv
  file: out.csv
server:
  address: ":9999"
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Transport.TimeoutMs != 5000 {
		t.Errorf("expected timeout 5000, got %d", cfg.Transport.TimeoutMs)
	}
	if cfg.Transport.RetryAttempts != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Transport.RetryAttempts)
	}
	if cfg.Sandbox.MemoryBytes != 16777216 {
		t.Errorf("expected explicit memory limit, got %d", cfg.Sandbox.MemoryBytes)
	}
	// Unset fields still get defaults.
	if cfg.Sandbox.StackBytes != 512<<10 {
		t.Errorf("expected default stack, got %d", cfg.Sandbox.StackBytes)
	}
	if cfg.Output.Format != "csv" || cfg.Output.File != "out.csv" {
		t.Errorf("unexpected output config %+v", cfg.Output)
	}
	if cfg.Server.Address != ":9999" {
		t.Errorf("unexpected server address %q", cfg.Server.Address)
	}
}

func TestLoadFromBytesEnvExpansion(t *testing.T) {
	os.Setenv("MEDIASPIDER_TEST_OUT", "expanded.json")
	defer os.Unsetenv("MEDIASPIDER_TEST_OUT")

	cfg, err := LoadFromBytes([]byte("output:\n  file: ${MEDIASPIDER_TEST_OUT}\n"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Output.File != "expanded.json" {
		t.Errorf("environment variable not expanded, got %q", cfg.Output.File)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: sqlite\n  file: db.sqlite\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Output.Format != "sqlite" {
		t.Errorf("unexpected format %q", cfg.Output.Format)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := LoadFromFile(""); err == nil {
		t.Error("expected an error for an empty filename")
	}
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("output:\n  format: json\n"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("unexpected format %q", cfg.Output.Format)
	}

	if _, err := LoadFromReader(nil); err == nil {
		t.Error("expected an error for a nil reader")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"negative timeout", func(c *Config) { c.Transport.TimeoutMs = -1 }, true},
		{"negative retries", func(c *Config) { c.Transport.RetryAttempts = -1 }, true},
		{"negative rate limit", func(c *Config) { c.Transport.RateLimit = -0.5 }, true},
		{"negative memory", func(c *Config) { c.Sandbox.MemoryBytes = -1 }, true},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.Transport.TimeoutDuration() != 15*time.Second {
		t.Errorf("unexpected timeout duration %v", cfg.Transport.TimeoutDuration())
	}
	if cfg.Transport.RetryDelayDuration() != time.Second {
		t.Errorf("unexpected retry delay %v", cfg.Transport.RetryDelayDuration())
	}
}
