// cmd/mediaspider/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vexflow/mediaspider/internal/config"
	"github.com/vexflow/mediaspider/internal/output"
	"github.com/vexflow/mediaspider/pkg/api"
	"github.com/vexflow/mediaspider/pkg/types"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// main routes CLI arguments to the appropriate command.
func main() {
	setupLogging()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "parse":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: URL required\n")
			fmt.Fprintf(os.Stderr, "Usage: mediaspider parse <url>\n")
			os.Exit(1)
		}
		runParse(os.Args[2])

	case "parse-file":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: HTML file required\n")
			fmt.Fprintf(os.Stderr, "Usage: mediaspider parse-file <page.html>\n")
			os.Exit(1)
		}
		runParseFile(os.Args[2])

	case "exec":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: script file required\n")
			fmt.Fprintf(os.Stderr, "Usage: mediaspider exec <script.js>\n")
			os.Exit(1)
		}
		runExec(os.Args[2])

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: mediaspider validate <config.yaml>\n")
			os.Exit(1)
		}
		runValidate(os.Args[2])

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setupLogging configures zerolog for console output. Verbose mode
// lowers the level to debug.
func setupLogging() {
	level := zerolog.InfoLevel
	if hasFlag("-v") || hasFlag("--verbose") {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// runParse fetches a URL and prints the extraction result.
func runParse(url string) {
	cfg := loadConfig()
	client := mustClient(cfg)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result := client.ParseURL(ctx, url)
	writeResult(cfg, result)
}

// runParseFile parses a local HTML document. The page URL for link
// resolution comes from --base-url when provided.
func runParseFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", filename, err)
		os.Exit(1)
	}

	cfg := loadConfig()
	client := mustClient(cfg)
	defer client.Close()

	result := client.Parse(flagValue("--base-url"), string(data))
	writeResult(cfg, result)
}

// runExec evaluates a script file in a fresh context and prints the
// completion value. Script failures print the boundary error string
// and exit nonzero.
func runExec(filename string) {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", filename, err)
		os.Exit(1)
	}

	client := mustClient(loadConfig())
	defer client.Close()

	id, err := client.CreateContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create script context: %v\n", err)
		os.Exit(1)
	}
	defer client.DestroyContext(id)

	out := client.EvaluateString(id, string(src))
	fmt.Println(out)
	if len(out) >= 6 && out[:6] == "ERROR:" {
		os.Exit(1)
	}
}

// runValidate checks a configuration file.
func runValidate(filename string) {
	cfg, err := config.LoadFromFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Configuration file '%s' is valid\n", filename)
}

// loadConfig resolves the effective configuration once per command:
// --config (or defaults) with the --output override applied.
func loadConfig() *config.Config {
	cfg := config.Default()
	if file := flagValue("--config"); file != "" {
		loaded, err := config.LoadFromFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if file := flagValue("--output"); file != "" {
		cfg.Output.File = file
	}
	return cfg
}

// mustClient builds an API client from the resolved configuration.
func mustClient(cfg *config.Config) *api.Client {
	client, err := api.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return client
}

// writeResult sends the result through the configured output format.
func writeResult(cfg *config.Config, result *types.ExtractionResult) {
	manager, err := output.NewManager(&cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create output manager: %v\n", err)
		os.Exit(1)
	}
	if err := manager.Write([]*types.ExtractionResult{result}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write results: %v\n", err)
		os.Exit(1)
	}

	if result.Error != "" {
		log.Warn().Str("url", result.URL).Str("error", result.Error).Msg("extraction degraded")
	}
}

// hasFlag checks if a flag is present in command line arguments.
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

// flagValue returns the value following a flag, or "" when absent.
func flagValue(flag string) string {
	for i, arg := range os.Args {
		if arg == flag && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return ""
}

// printUsage displays help information.
func printUsage() {
	fmt.Println("MediaSpider - Media Metadata Extraction Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mediaspider parse <url>             Fetch a page and extract media metadata")
	fmt.Println("  mediaspider parse-file <page.html>  Extract media metadata from a local file")
	fmt.Println("  mediaspider exec <script.js>        Evaluate a script in a sandboxed context")
	fmt.Println("  mediaspider validate <config.yaml>  Validate a configuration file")
	fmt.Println("  mediaspider version                 Show version information")
	fmt.Println("  mediaspider help                    Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>     Configuration file")
	fmt.Println("  --output <file>     Output file (default: stdout)")
	fmt.Println("  --base-url <url>    Page URL for relative link resolution (parse-file)")
	fmt.Println("  -v, --verbose       Enable verbose output")
}

// printVersion displays version information.
func printVersion() {
	fmt.Printf("MediaSpider %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
