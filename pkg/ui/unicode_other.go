//go:build !windows

package ui

import "io"

// PrepareConsole is a no-op outside Windows.
func PrepareConsole() {}

func consoleUTF8(_ io.Writer) bool {
	return true
}
