// Package matcher decides whether a response indicates a vulnerability.
//
// Rules are evaluated in a fixed order, short-circuiting:
//
//  1. an expected status code must equal the actual one
//  2. if success indicators exist, at least one must match the body
//  3. any matching error indicator vetoes the verdict
//  4. otherwise the response is vulnerable
//
// Regex indicators must match the whole body, not a substring: "^OK$"
// matches "OK" but neither "OK\n" nor "is OK". Patterns that should find
// text anywhere need to be written as "(?s).*text.*".
package matcher

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pocscan/pocscan/pkg/poc"
	"github.com/pocscan/pocscan/pkg/regexcache"
)

// Verdict is the outcome of Evaluate with a short reason for logs.
type Verdict struct {
	Vulnerable bool
	Reason     string
}

// Matcher evaluates POC response rules. The zero value logs to slog.Default().
type Matcher struct {
	Logger *slog.Logger
}

// New returns a Matcher logging to logger.
func New(logger *slog.Logger) *Matcher {
	return &Matcher{Logger: logger}
}

func (m *Matcher) logger() *slog.Logger {
	if m == nil || m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// Matches reports whether status and body satisfy rules.
// A nil rule set is never vulnerable.
func (m *Matcher) Matches(rules *poc.Response, status int, body string) bool {
	return m.Evaluate(rules, status, body).Vulnerable
}

// Evaluate is Matches with the reason attached.
func (m *Matcher) Evaluate(rules *poc.Response, status int, body string) Verdict {
	if rules == nil {
		return Verdict{Reason: "no response rules"}
	}

	if rules.StatusCode != nil && *rules.StatusCode != status {
		return Verdict{Reason: fmt.Sprintf("status %d, expected %d", status, *rules.StatusCode)}
	}

	mt := rules.EffectiveMatchType()

	if len(rules.SuccessIndicators) > 0 {
		matched := false
		for _, ind := range rules.SuccessIndicators {
			if m.MatchIndicator(mt, ind, body) {
				matched = true
				break
			}
		}
		if !matched {
			return Verdict{Reason: "no success indicator matched"}
		}
	}

	for _, ind := range rules.ErrorIndicators {
		if m.MatchIndicator(mt, ind, body) {
			return Verdict{Reason: fmt.Sprintf("error indicator %q matched", ind)}
		}
	}

	return Verdict{Vulnerable: true, Reason: "all rules satisfied"}
}

// MatchIndicator tests one indicator against body. Unknown match types
// behave like contains. An invalid or runaway regex is logged and does not
// match.
func (m *Matcher) MatchIndicator(mt poc.MatchType, indicator, body string) bool {
	switch mt.Normalize() {
	case poc.MatchEquals:
		return body == indicator
	case poc.MatchRegex:
		ok, err := regexcache.FullMatch(indicator, body)
		if err != nil {
			m.logger().Warn("regex indicator failed",
				slog.String("pattern", indicator),
				slog.String("error", err.Error()))
			return false
		}
		return ok
	default:
		return strings.Contains(body, indicator)
	}
}
