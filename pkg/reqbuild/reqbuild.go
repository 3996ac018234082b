// Package reqbuild turns a scan target and a POC path/params template into
// the fully qualified URL the transport will request.
//
// Construction never fails: malformed input degrades to a best-effort URL so
// the transport can still attempt the request and report the real problem.
package reqbuild

import (
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/pocscan/pocscan/pkg/ordered"
)

// NormalizeTarget prepends http:// when target has no scheme and strips one
// trailing slash.
func NormalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if !hasScheme(target) {
		target = "http://" + target
	}
	return strings.TrimSuffix(target, "/")
}

// NormalizePath maps an empty path to "/" and makes sure the result starts
// with exactly one slash.
func NormalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

// BuildURL joins target, path and params into a full URL. Each param key and
// value is percent-encoded independently, in declaration order.
func BuildURL(target, path string, params ordered.Map) (full string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Warn("URL construction failed, using naive concatenation",
				slog.String("target", target), slog.Any("panic", r))
			full = target + path
		}
	}()

	full = NormalizeTarget(target) + NormalizePath(path)
	if len(params) == 0 {
		return full
	}

	var qs strings.Builder
	for i, p := range params {
		if i > 0 {
			qs.WriteByte('&')
		}
		qs.WriteString(encodeComponent(p.Key))
		qs.WriteByte('=')
		qs.WriteString(encodeComponent(p.Value))
	}
	return full + "?" + qs.String()
}

// encodeComponent applies form encoding (space as '+'). Invalid UTF-8 cannot
// be represented faithfully, so such components are emitted unencoded.
func encodeComponent(s string) string {
	if !utf8.ValidString(s) {
		return s
	}
	return url.QueryEscape(s)
}

func hasScheme(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// IsSecure reports whether u uses the https scheme.
func IsSecure(u string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(u)), "https://")
}
