package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatLatency renders milliseconds in a human-readable way.
func FormatLatency(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// ProgressBar renders done/total as a bar of the given width followed by
// the counter and percentage. A zero total renders an empty bar.
func ProgressBar(done, total, width int, full, empty string) string {
	if width <= 0 {
		width = 30
	}
	ratio := 0.0
	if total > 0 {
		ratio = float64(done) / float64(total)
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	bar := ProgressFullStyle.Render(strings.Repeat(full, filled)) +
		ProgressEmptyStyle.Render(strings.Repeat(empty, width-filled))
	return fmt.Sprintf("%s %d/%d %5.1f%%", bar, done, total, ratio*100)
}
