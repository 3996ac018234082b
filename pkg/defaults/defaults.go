// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for runtime configuration defaults.
//
// Usage:
//
//	cfg.Concurrency = defaults.Concurrency
//	headers = append(headers, ordered.Pair{Key: "Accept", Value: defaults.Accept})
//
// DO NOT use hardcoded values like `Concurrency: 10` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

// Version is the current pocscan version
const Version = "1.2.0"

// ToolName is used for telemetry service names and metric prefixes.
const ToolName = "pocscan"

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================

const (
	// Concurrency is the default worker pool width (10)
	Concurrency = 10

	// ConcurrencyMin is the smallest accepted pool width (1)
	ConcurrencyMin = 1

	// ConcurrencyMax is the largest accepted pool width (50)
	ConcurrencyMax = 50
)

// ============================================================================
// REQUEST DEFAULTS
// ============================================================================
//
// Headers the transport adds when a POC does not declare its own value.
// Order of emission is fixed by httpclient.AssembleHeaders, not here.
// ============================================================================

const (
	// UserAgent is a realistic desktop Chrome user agent.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	Accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	AcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
	AcceptCharset  = "UTF-8,GBK,GB2312,ISO-8859-1;q=0.7,*;q=0.5"
	AcceptEncoding = "gzip, deflate"
	Connection     = "close"

	// ContentTypeForm is used for POST/PUT bodies without a declared Content-Type.
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// ============================================================================
// MATCHING / RESULT DEFAULTS
// ============================================================================

const (
	// MatchType is applied when a POC omits response.matchType.
	MatchType = "contains"

	// UnknownLevel labels POCs without a severity level.
	UnknownLevel = "Unknown"

	// EvidenceMatched is the fixed evidence string for a positive verdict.
	EvidenceMatched = "Matched vulnerability pattern"

	// EvidenceErrorPrefix prefixes evidence for probes that could not complete.
	EvidenceErrorPrefix = "Error: "

	// TLSTimeLayout formats certificate validity windows (yyyy-MM-dd HH:mm:ss).
	TLSTimeLayout = "2006-01-02 15:04:05"
)

// ============================================================================
// SIZE LIMITS
// ============================================================================

const (
	// MaxBodySize caps how much of a response body is buffered (10MB).
	MaxBodySize int64 = 10 * 1024 * 1024
)
