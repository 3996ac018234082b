//go:build windows

package ui

import (
	"io"
	"os"

	"golang.org/x/sys/windows"
)

const cpUTF8 = 65001

// PrepareConsole switches the console to UTF-8 and enables ANSI escape
// processing on stdout and stderr. Errors are ignored: redirected handles
// are not consoles.
func PrepareConsole() {
	_ = windows.SetConsoleOutputCP(cpUTF8)
	_ = windows.SetConsoleCP(cpUTF8)
	for _, std := range []uint32{windows.STD_ERROR_HANDLE, windows.STD_OUTPUT_HANDLE} {
		h, err := windows.GetStdHandle(std)
		if err != nil {
			continue
		}
		var mode uint32
		if windows.GetConsoleMode(h, &mode) == nil {
			_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
		}
	}
}

// consoleUTF8 checks the console output codepage. Windows Terminal
// renders UTF-8 regardless; legacy conhost only when the codepage is 65001.
func consoleUTF8(_ io.Writer) bool {
	if os.Getenv("WT_SESSION") != "" {
		return true
	}
	cp, err := windows.GetConsoleOutputCP()
	return err == nil && cp == cpUTF8
}
