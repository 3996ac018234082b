// Package output renders scan results: a colored console report, a single
// JSON document, or a JSONL stream. Every writer is a scanner.Listener so
// it can be attached to a run directly.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pocscan/pocscan/pkg/metrics"
	"github.com/pocscan/pocscan/pkg/scanner"
)

// Supported formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJSONL   = "jsonl"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("output: unknown format")

// Formats lists the accepted format names.
func Formats() []string {
	return []string{FormatConsole, FormatJSON, FormatJSONL}
}

// Writer receives results during a run and the summary once it ends.
// Finish flushes buffered output and releases any file the writer opened.
type Writer interface {
	scanner.Listener
	Finish(summary *metrics.Summary) error
}

// Options configures New.
type Options struct {
	Format string

	// Path writes to a file instead of Stdout. The file is created by New
	// and closed by Finish.
	Path string

	// Console-only settings.
	Verbose bool
	Silent  bool
	NoColor bool

	Stdout io.Writer
	Stderr io.Writer
}

// New creates the writer for opts.Format.
func New(opts Options) (Writer, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatConsole
	}

	switch format {
	case FormatConsole:
		if opts.Path != "" {
			return nil, fmt.Errorf("%s format writes to the terminal; use json or jsonl with an output file", format)
		}
		return NewConsoleWriter(opts.Stdout, opts.Stderr, ConsoleOptions{
			Verbose: opts.Verbose,
			Silent:  opts.Silent,
			NoColor: opts.NoColor,
		}), nil
	case FormatJSON, FormatJSONL:
		w, closer, err := open(opts.Path, opts.Stdout)
		if err != nil {
			return nil, err
		}
		if format == FormatJSON {
			return NewJSONWriter(w, closer), nil
		}
		return NewJSONLWriter(w, closer), nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, opts.Format, strings.Join(Formats(), ", "))
	}
}

func open(path string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if path == "" {
		return stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("output: create %s: %w", path, err)
	}
	return f, f, nil
}

// Fanout combines writers. Listener calls go to each in order, and Finish
// runs on all of them, returning the joined errors.
func Fanout(ws ...Writer) Writer {
	f := &fanout{}
	ls := make([]scanner.Listener, 0, len(ws))
	for _, w := range ws {
		if w != nil {
			f.writers = append(f.writers, w)
			ls = append(ls, w)
		}
	}
	f.Listener = scanner.Multi(ls...)
	return f
}

type fanout struct {
	scanner.Listener
	writers []Writer
}

func (f *fanout) Finish(summary *metrics.Summary) error {
	var errs []error
	for _, w := range f.writers {
		if err := w.Finish(summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
