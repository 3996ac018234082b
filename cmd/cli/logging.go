package main

import (
	"io"
	"log/slog"

	"github.com/pocscan/pocscan/pkg/config"
)

// newLogger writes text records to w. -v lowers the level to debug and
// -silent raises it to error; the default hides per-probe noise below warn.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case cfg.Verbose:
		level = slog.LevelDebug
	case cfg.Silent:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
