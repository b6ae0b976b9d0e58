// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the spider.
type Config struct {
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Sandbox   SandboxConfig   `yaml:"sandbox" json:"sandbox"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// TransportConfig tunes the HTTP client shared by the CLI fetch path
// and the script bridge.
type TransportConfig struct {
	TimeoutMs     int64             `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	RetryAttempts int               `yaml:"retry_attempts,omitempty" json:"retry_attempts,omitempty"`
	RetryDelayMs  int64             `yaml:"retry_delay_ms,omitempty" json:"retry_delay_ms,omitempty"`
	RateLimit     float64           `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	RateBurst     int               `yaml:"rate_burst,omitempty" json:"rate_burst,omitempty"`
	UserAgents    []string          `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	Headers       map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// SandboxConfig sets the resource ceilings applied to new script
// contexts. Defaults match the compatibility constants.
type SandboxConfig struct {
	MemoryBytes int64 `yaml:"memory_bytes,omitempty" json:"memory_bytes,omitempty"`
	StackBytes  int64 `yaml:"stack_bytes,omitempty" json:"stack_bytes,omitempty"`
}

// OutputConfig selects where extraction results are written.
type OutputConfig struct {
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
	Table  string `yaml:"table,omitempty" json:"table,omitempty"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Environment
// variable references of the form $VAR and ${VAR} are expanded first.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Transport.TimeoutMs == 0 {
		config.Transport.TimeoutMs = 15000
	}
	if config.Transport.RetryAttempts == 0 {
		config.Transport.RetryAttempts = 3
	}
	if config.Transport.RetryDelayMs == 0 {
		config.Transport.RetryDelayMs = 1000
	}
	if config.Sandbox.MemoryBytes == 0 {
		config.Sandbox.MemoryBytes = 32 << 20
	}
	if config.Sandbox.StackBytes == 0 {
		config.Sandbox.StackBytes = 512 << 10
	}
	if config.Output.Format == "" {
		config.Output.Format = "json"
	}
	if config.Output.Table == "" {
		config.Output.Table = "extraction_results"
	}
	if config.Server.Address == "" {
		config.Server.Address = ":8089"
	}
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if c.Transport.TimeoutMs < 0 {
		return fmt.Errorf("transport timeout_ms cannot be negative")
	}
	if c.Transport.RetryAttempts < 0 {
		return fmt.Errorf("transport retry_attempts cannot be negative")
	}
	if c.Transport.RateLimit < 0 {
		return fmt.Errorf("transport rate_limit cannot be negative")
	}
	if c.Sandbox.MemoryBytes < 0 || c.Sandbox.StackBytes < 0 {
		return fmt.Errorf("sandbox resource limits cannot be negative")
	}
	switch c.Output.Format {
	case "json", "csv", "sqlite":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Output.Format)
	}
	return nil
}

// TimeoutDuration returns the transport timeout as a time.Duration.
func (c *TransportConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RetryDelayDuration returns the retry delay as a time.Duration.
func (c *TransportConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}
