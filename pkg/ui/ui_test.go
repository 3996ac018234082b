package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func init() {
	DisableColor()
}

func TestFormatLatency(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{999, "999ms"},
		{1000, "1.00s"},
		{2500, "2.50s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLatency(tt.ms))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "漏洞扫...", Truncate("漏洞扫描器测试", 6))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "unchanged", Truncate("unchanged", 0))
}

func TestProgressBar(t *testing.T) {
	got := ProgressBar(5, 10, 10, "#", ".")
	assert.True(t, strings.HasPrefix(got, "#####....."), got)
	assert.Contains(t, got, "5/10")
	assert.Contains(t, got, "50.0%")

	assert.Contains(t, ProgressBar(0, 0, 4, "#", "."), "....")
	assert.Contains(t, ProgressBar(12, 10, 4, "#", "."), "####")
}

func TestIsTerminal_NonFile(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.False(t, UnicodeCapable(&buf))
	assert.Equal(t, "[+]", Icon(&buf, "✔", "[+]"))
	assert.Equal(t, 80, Width(&buf, 80))
}

func TestSeverityStyle_CaseInsensitive(t *testing.T) {
	assert.Equal(t, SeverityStyle("HIGH").GetForeground(), SeverityStyle("high").GetForeground())
	assert.Equal(t, Muted, SeverityStyle("bogus").GetForeground())
}

func TestStatusCodeStyle(t *testing.T) {
	assert.Equal(t, Status2xx, StatusCodeStyle(204).GetForeground())
	assert.Equal(t, Status3xx, StatusCodeStyle(302).GetForeground())
	assert.Equal(t, Status4xx, StatusCodeStyle(404).GetForeground())
	assert.Equal(t, Status5xx, StatusCodeStyle(503).GetForeground())
	assert.Equal(t, Muted, StatusCodeStyle(0).GetForeground())
}

func TestBracket(t *testing.T) {
	assert.Equal(t, "[x]", Bracket("x"))
}
