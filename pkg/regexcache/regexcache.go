// Package regexcache provides thread-safe caches for compiled regular
// expressions. Compiling the same indicator for every probe in a run is
// wasteful, so patterns are compiled once and shared across workers.
//
// Two engines are cached separately:
//
//   - Get/MustGet: RE2 (stdlib regexp) for internal scanning patterns such as
//     charset declarations.
//   - Full: dlclark/regexp2 for POC indicators. POC authors write patterns in
//     Java/.NET syntax (lookarounds, backreferences) and expect the whole
//     body to match, not a substring.
package regexcache

import (
	"regexp"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/pocscan/pocscan/pkg/duration"
)

// cache holds compiled RE2 expressions keyed by pattern string.
var cache sync.Map

// fullCache holds anchored regexp2 expressions keyed by the raw pattern.
var fullCache sync.Map

// Get returns a compiled regexp for the given pattern.
// If the pattern is invalid, it returns an error.
func Get(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet returns a compiled regexp for the given pattern.
// It panics if the pattern is invalid.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Full returns pattern compiled so that it only matches an entire input:
// the pattern is wrapped as \A(?:pattern)\z, so a trailing newline is not
// forgiven the way '$' would. Each match is bounded by
// duration.RegexMatchTimeout to contain catastrophic backtracking.
func Full(pattern string) (*regexp2.Regexp, error) {
	if cached, ok := fullCache.Load(pattern); ok {
		return cached.(*regexp2.Regexp), nil
	}

	// The raw pattern must stand on its own; an unbalanced ')' would
	// otherwise close the anchoring group and escape \A and \z.
	if _, err := regexp2.Compile(pattern, regexp2.None); err != nil {
		return nil, err
	}
	re, err := regexp2.Compile(`\A(?:`+pattern+`)\z`, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = duration.RegexMatchTimeout

	actual, _ := fullCache.LoadOrStore(pattern, re)
	return actual.(*regexp2.Regexp), nil
}

// FullMatch reports whether input matches pattern in its entirety.
func FullMatch(pattern, input string) (bool, error) {
	re, err := Full(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(input)
}

// Clear removes all cached regular expressions.
// This is primarily useful for testing.
func Clear() {
	cache.Range(func(key, _ interface{}) bool {
		cache.Delete(key)
		return true
	})
	fullCache.Range(func(key, _ interface{}) bool {
		fullCache.Delete(key)
		return true
	})
}

// Size returns the number of cached regular expressions across both engines.
func Size() int {
	count := 0
	counter := func(_, _ interface{}) bool {
		count++
		return true
	}
	cache.Range(counter)
	fullCache.Range(counter)
	return count
}
