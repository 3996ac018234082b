// Package duration provides canonical time constants for the entire codebase.
//
// DO NOT use hardcoded time.Duration values like `10 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// HTTP TIMEOUTS
// ============================================================================

const (
	// RequestTimeout is the default per-request timeout applied identically to
	// connect, read and write (10s).
	RequestTimeout = 10 * time.Second

	// RequestTimeoutMillis mirrors RequestTimeout for millisecond-based config.
	RequestTimeoutMillis = 10000
)

// ============================================================================
// TELEMETRY
// ============================================================================

const (
	// MetricsReadTimeout bounds reads on the /metrics server (5s).
	MetricsReadTimeout = 5 * time.Second

	// MetricsWriteTimeout bounds writes on the /metrics server (10s).
	MetricsWriteTimeout = 10 * time.Second

	// TelemetryShutdown bounds exporter and server shutdown (5s).
	TelemetryShutdown = 5 * time.Second

	// TelemetryConnect bounds OTLP exporter setup (10s).
	TelemetryConnect = 10 * time.Second
)

// ============================================================================
// MATCHING
// ============================================================================

const (
	// RegexMatchTimeout caps a single full-match regex evaluation (2s).
	RegexMatchTimeout = 2 * time.Second
)

// ============================================================================
// DNS CACHE
// ============================================================================

const (
	// DNSCacheTTL is how long a successful lookup is reused (5m).
	DNSCacheTTL = 5 * time.Minute

	// DNSNegativeTTL is how long a failed lookup is reused (30s).
	DNSNegativeTTL = 30 * time.Second
)

// ============================================================================
// RATE LIMITING
// ============================================================================

const (
	// SlowdownStart is the first adaptive delay after a failed probe (100ms).
	SlowdownStart = 100 * time.Millisecond

	// SlowdownMax caps the adaptive delay (5s).
	SlowdownMax = 5 * time.Second
)
