// Package poc defines the declarative probe ("POC") model: one HTTP request
// template plus the rules that decide whether a response indicates a
// vulnerability. POCs are immutable once loaded; the engine only reads them.
package poc

import (
	"strings"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/ordered"
)

// MatchType selects how indicators are compared against a response body.
type MatchType string

const (
	// MatchContains is substring presence.
	MatchContains MatchType = "contains"
	// MatchEquals is exact full-body equality.
	MatchEquals MatchType = "equals"
	// MatchRegex requires the entire body to match the pattern.
	MatchRegex MatchType = "regex"
)

// Normalize lower-cases t and maps empty or unknown values to MatchContains.
func (t MatchType) Normalize() MatchType {
	switch MatchType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case MatchEquals:
		return MatchEquals
	case MatchRegex:
		return MatchRegex
	default:
		return MatchContains
	}
}

// POC is one vulnerability check.
type POC struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string    `yaml:"author,omitempty" json:"author,omitempty"`
	Level       string    `yaml:"level,omitempty" json:"level,omitempty"`
	Request     *Request  `yaml:"request" json:"request"`
	Response    *Response `yaml:"response,omitempty" json:"response,omitempty"`
}

// Request is the HTTP request template.
type Request struct {
	Method  string      `yaml:"method" json:"method"`
	Path    string      `yaml:"path,omitempty" json:"path,omitempty"`
	Headers ordered.Map `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body    string      `yaml:"body,omitempty" json:"body,omitempty"`
	Params  ordered.Map `yaml:"params,omitempty" json:"params,omitempty"`
}

// Response holds the matching rules.
type Response struct {
	// StatusCode, when set, must equal the actual status code.
	StatusCode *int `yaml:"statusCode,omitempty" json:"statusCode,omitempty"`

	// SuccessIndicators: at least one must match. Empty means no requirement.
	SuccessIndicators []string `yaml:"successIndicators,omitempty" json:"successIndicators,omitempty"`

	// ErrorIndicators: any match vetoes the verdict.
	ErrorIndicators []string `yaml:"errorIndicators,omitempty" json:"errorIndicators,omitempty"`

	MatchType MatchType `yaml:"matchType,omitempty" json:"matchType,omitempty"`
}

// LevelOrUnknown returns the severity label, or "Unknown" when unset.
func (p *POC) LevelOrUnknown() string {
	if p == nil || strings.TrimSpace(p.Level) == "" {
		return defaults.UnknownLevel
	}
	return p.Level
}

// MethodOrDefault returns the upper-cased request method, defaulting to GET.
func (r *Request) MethodOrDefault() string {
	if r == nil || strings.TrimSpace(r.Method) == "" {
		return "GET"
	}
	return strings.ToUpper(strings.TrimSpace(r.Method))
}

// EffectiveMatchType returns the normalized match type for r.
func (r *Response) EffectiveMatchType() MatchType {
	if r == nil {
		return MatchContains
	}
	return r.MatchType.Normalize()
}

// IntPtr is a helper for building Response.StatusCode literals.
func IntPtr(v int) *int {
	return &v
}
