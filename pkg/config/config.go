// Package config parses and validates the command-line surface of pocscan.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/duration"
	"github.com/pocscan/pocscan/pkg/httpclient"
	"github.com/pocscan/pocscan/pkg/output"
	"github.com/pocscan/pocscan/pkg/ratelimit"
	ptls "github.com/pocscan/pocscan/pkg/tls"
)

// Config holds all CLI configuration options
type Config struct {
	// Target settings
	Target string // Host to scan; scheme optional (http:// assumed)
	POCDir string // Directory of .yaml/.yml POC files

	// Execution settings
	Concurrency   int           // Worker pool width (default: 10, 1-50)
	TimeoutMillis int           // Per-request timeout in milliseconds (default: 10000)
	RateLimit     int           // Probes per second (0 = unlimited)
	Delay         time.Duration // Fixed pause before each probe
	Adaptive      bool          // Slow down while probes fail

	// Transport settings
	ProxyURL    string // Proxy URL, e.g. socks5://127.0.0.1:1080
	ProxyHost   string // Proxy host (alternative to ProxyURL)
	ProxyPort   int    // Proxy port 1-65535
	ProxyType   string // http, https, socks (default: http)
	VerifyTLS   bool   // Verify certificates and host names (default: off)
	Fingerprint string // utls ClientHello profile name (empty = crypto/tls)
	UserAgent   string // Override the default User-Agent

	// Output settings
	OutputFile   string // Output file path (empty = stdout)
	OutputFormat string // console, json, jsonl
	JSONLines    bool   // Shortcut for -format jsonl
	Verbose      bool   // Verbose output
	Silent       bool   // Findings only
	NoColor      bool   // Disable colored output
	FailOnVuln   bool   // Exit with defaults.ExitVulnerable when anything matched

	// Telemetry
	MetricsAddr  string // Serve Prometheus metrics on this address (e.g. :9090)
	OTLPEndpoint string // Export traces to this OTLP gRPC endpoint
	OTLPInsecure bool   // Plaintext gRPC to the OTLP endpoint

	// Meta
	ShowVersion      bool
	ListFingerprints bool
}

// ParseFlags parses args (without the program name) into a Config. Parse
// errors and -h are returned as errors; usage text goes to usage.
func ParseFlags(args []string, usage io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet(defaults.ToolName, flag.ContinueOnError)
	if usage != nil {
		fs.SetOutput(usage)
	} else {
		fs.SetOutput(io.Discard)
	}

	// === INPUT ===
	fs.StringVar(&cfg.Target, "u", "", "Target host or URL")
	fs.StringVar(&cfg.Target, "target", "", "Target host or URL (alias)")
	fs.StringVar(&cfg.POCDir, "pocs", "pocs", "Directory containing POC YAML files")
	fs.StringVar(&cfg.POCDir, "p", "pocs", "POC directory (alias)")

	// === EXECUTION ===
	fs.IntVar(&cfg.Concurrency, "concurrency", defaults.Concurrency, "Concurrent probes")
	fs.IntVar(&cfg.Concurrency, "c", defaults.Concurrency, "Concurrent probes (alias)")
	fs.IntVar(&cfg.TimeoutMillis, "timeout", duration.RequestTimeoutMillis, "Per-request timeout in milliseconds")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 0, "Max probes per second (0 = unlimited)")
	fs.IntVar(&cfg.RateLimit, "rl", 0, "Rate limit (alias)")
	fs.DurationVar(&cfg.Delay, "delay", 0, "Fixed delay before each probe (e.g. 200ms)")
	fs.BoolVar(&cfg.Adaptive, "adaptive", false, "Slow down while probes keep failing")

	// === NETWORK ===
	fs.StringVar(&cfg.ProxyURL, "proxy", "", "Proxy URL (http://, https://, socks5://)")
	fs.StringVar(&cfg.ProxyURL, "x", "", "Proxy URL (alias)")
	fs.StringVar(&cfg.ProxyHost, "proxy-host", "", "Proxy host")
	fs.IntVar(&cfg.ProxyPort, "proxy-port", 0, "Proxy port")
	fs.StringVar(&cfg.ProxyType, "proxy-type", "http", "Proxy type: http, https, socks")
	fs.BoolVar(&cfg.VerifyTLS, "verify-tls", false, "Verify TLS certificates and host names")
	fs.StringVar(&cfg.Fingerprint, "fingerprint", "", "TLS ClientHello profile ("+strings.Join(ptls.ProfileNames(), ", ")+")")
	fs.StringVar(&cfg.Fingerprint, "ja3", "", "TLS fingerprint (alias)")
	fs.StringVar(&cfg.UserAgent, "user-agent", "", "Override the default User-Agent")
	fs.StringVar(&cfg.UserAgent, "ua", "", "User-Agent (alias)")

	// === OUTPUT ===
	fs.StringVar(&cfg.OutputFile, "output", "", "Output file path")
	fs.StringVar(&cfg.OutputFile, "o", "", "Output file (alias)")
	fs.StringVar(&cfg.OutputFormat, "format", output.FormatConsole, "Output format: "+strings.Join(output.Formats(), ", "))
	fs.BoolVar(&cfg.JSONLines, "jsonl", false, "JSONL output (one JSON per line)")
	fs.BoolVar(&cfg.JSONLines, "j", false, "JSONL output (alias)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose (alias)")
	fs.BoolVar(&cfg.Silent, "silent", false, "Print findings only")
	fs.BoolVar(&cfg.Silent, "s", false, "Silent (alias)")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&cfg.NoColor, "nc", false, "No color (alias)")
	fs.BoolVar(&cfg.FailOnVuln, "fail-on-vuln", false, "Exit with code 3 when a vulnerability is found")

	// === TELEMETRY ===
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.StringVar(&cfg.OTLPEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for traces (e.g. localhost:4317)")
	fs.BoolVar(&cfg.OTLPInsecure, "otel-insecure", false, "Use plaintext gRPC for the OTLP endpoint")

	// === META ===
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	fs.BoolVar(&cfg.ListFingerprints, "list-fingerprints", false, "List TLS fingerprint profiles and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Handle JSONL format shortcut
	if cfg.JSONLines {
		cfg.OutputFormat = output.FormatJSONL
	}

	// A bare positional argument is accepted as the target.
	if cfg.Target == "" && fs.NArg() > 0 {
		cfg.Target = fs.Arg(0)
	}

	return cfg, nil
}

// Validate checks every option and returns all problems joined. Each
// problem wraps ErrMissingRequired or ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if strings.TrimSpace(c.Target) == "" {
		errs = append(errs, fmt.Errorf("%w: target (-u)", ErrMissingRequired))
	}
	if strings.TrimSpace(c.POCDir) == "" {
		errs = append(errs, fmt.Errorf("%w: POC directory (-pocs)", ErrMissingRequired))
	}
	if c.Concurrency < defaults.ConcurrencyMin || c.Concurrency > defaults.ConcurrencyMax {
		invalid("concurrency %d out of range %d-%d", c.Concurrency, defaults.ConcurrencyMin, defaults.ConcurrencyMax)
	}
	if c.TimeoutMillis <= 0 {
		invalid("timeout must be a positive number of milliseconds, got %d", c.TimeoutMillis)
	}
	if c.RateLimit < 0 {
		invalid("rate limit must not be negative, got %d", c.RateLimit)
	}
	if c.Delay < 0 {
		invalid("delay must not be negative, got %s", c.Delay)
	}
	if _, err := c.Proxy(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	if c.Fingerprint != "" {
		if _, err := ptls.Lookup(c.Fingerprint); err != nil {
			invalid("%v", err)
		}
	}
	if !validFormat(c.OutputFormat) {
		invalid("output format %q (want one of %s)", c.OutputFormat, strings.Join(output.Formats(), ", "))
	} else if strings.EqualFold(c.OutputFormat, output.FormatConsole) && c.OutputFile != "" {
		invalid("console output cannot be written to a file; use -format json or jsonl")
	}
	if c.Verbose && c.Silent {
		invalid("-v and -silent are mutually exclusive")
	}
	return errors.Join(errs...)
}

func validFormat(f string) bool {
	for _, known := range output.Formats() {
		if strings.EqualFold(strings.TrimSpace(f), known) {
			return true
		}
	}
	return false
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// Proxy returns the configured upstream proxy, or nil for a direct
// connection. ProxyURL wins over the host/port/type triple.
func (c *Config) Proxy() (*httpclient.ProxyConfig, error) {
	if c.ProxyURL != "" {
		if c.ProxyHost != "" {
			return nil, fmt.Errorf("%w: set either -proxy or -proxy-host, not both", httpclient.ErrInvalidProxy)
		}
		return httpclient.ParseProxyURL(c.ProxyURL)
	}
	if c.ProxyHost == "" {
		if c.ProxyPort != 0 {
			return nil, fmt.Errorf("%w: -proxy-port requires -proxy-host", httpclient.ErrInvalidProxy)
		}
		return nil, nil
	}
	return httpclient.NewProxyConfig(c.ProxyHost, c.ProxyPort, c.ProxyType)
}

// HTTPClient builds the transport configuration.
func (c *Config) HTTPClient() (httpclient.Config, error) {
	proxy, err := c.Proxy()
	if err != nil {
		return httpclient.Config{}, err
	}
	hc := httpclient.DefaultConfig()
	hc.Timeout = c.Timeout()
	hc.InsecureSkipVerify = !c.VerifyTLS
	hc.Proxy = proxy
	hc.Fingerprint = c.Fingerprint
	hc.UserAgent = c.UserAgent
	return hc, nil
}

// RateLimiter builds the dispatch limiter, or nil when no pacing is asked for.
func (c *Config) RateLimiter() *ratelimit.Limiter {
	rc := ratelimit.Config{
		RequestsPerSecond: c.RateLimit,
		Delay:             c.Delay,
		AdaptiveSlowdown:  c.Adaptive,
	}
	if !rc.Enabled() {
		return nil
	}
	return ratelimit.New(rc)
}
