// Package ui holds terminal styling for the console report.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// fder is satisfied by *os.File.
type fder interface {
	Fd() uintptr
}

// IsTerminal reports whether w is an interactive terminal. Anything that
// is not backed by a file descriptor is treated as a pipe.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fder)
	if !ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// UnicodeCapable reports whether w can render box glyphs.
func UnicodeCapable(w io.Writer) bool {
	if !IsTerminal(w) {
		return false
	}
	return consoleUTF8(w)
}

// Icon returns unicode when w supports it, ascii otherwise.
func Icon(w io.Writer, unicode, ascii string) string {
	if UnicodeCapable(w) {
		return unicode
	}
	return ascii
}

// Width returns the column count of w, or fallback when unknown.
func Width(w io.Writer, fallback int) int {
	f, ok := w.(fder)
	if !ok {
		return fallback
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return fallback
	}
	return cols
}

// DisableColor forces plain output from every style in this package.
// The console writer calls it when stdout is not a terminal or when the
// user asked for no color.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
