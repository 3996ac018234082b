package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pocscan/pocscan/pkg/engine"
	"github.com/pocscan/pocscan/pkg/metrics"
	"github.com/pocscan/pocscan/pkg/scanner"
	"github.com/pocscan/pocscan/pkg/ui"
)

// ConsoleOptions configures a ConsoleWriter.
type ConsoleOptions struct {
	// Verbose also prints safe and failed probes and run log lines.
	Verbose bool

	// Silent prints vulnerable findings only.
	Silent bool

	NoColor bool

	// Stats feeds the live progress bar. The bar is drawn only when
	// Stats is set and stderr is a terminal.
	Stats func() scanner.Stats
}

// ConsoleWriter prints findings to stdout and progress to stderr.
type ConsoleWriter struct {
	out  io.Writer
	err  io.Writer
	opts ConsoleOptions

	mu       sync.Mutex
	progress bool
	drawn    bool
}

// NewConsoleWriter creates a console writer. Color is turned off when
// stdout is not a terminal.
func NewConsoleWriter(stdout, stderr io.Writer, opts ConsoleOptions) *ConsoleWriter {
	if opts.NoColor || !ui.IsTerminal(stdout) {
		ui.DisableColor()
	}
	return &ConsoleWriter{
		out:      stdout,
		err:      stderr,
		opts:     opts,
		progress: !opts.Silent && ui.IsTerminal(stderr),
	}
}

// SetStats attaches the stats source for the progress bar.
func (w *ConsoleWriter) SetStats(fn func() scanner.Stats) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opts.Stats = fn
}

func (w *ConsoleWriter) OnLog(msg string) {
	if !w.opts.Verbose || w.opts.Silent {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clearProgress()
	fmt.Fprintf(w.err, "%s %s\n", ui.Bracket(ui.StatLabelStyle.Render("INF")), msg)
}

func (w *ConsoleWriter) OnProgress(int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drawProgress()
}

func (w *ConsoleWriter) OnResult(res *engine.ScanResult) {
	if res == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	var line string
	switch {
	case res.Vulnerable:
		line = FormatFinding(res)
		if w.opts.Verbose && res.Evidence != "" {
			line += "\n      " + ui.SubtitleStyle.Render("-> "+ui.Truncate(res.Evidence, 100))
		}
	case w.opts.Silent || !w.opts.Verbose:
		return
	case res.Failed():
		line = FormatError(res)
	default:
		line = FormatSafe(res)
	}

	w.clearProgress()
	fmt.Fprintln(w.out, line)
	w.drawProgress()
}

// Finish prints the run summary.
func (w *ConsoleWriter) Finish(s *metrics.Summary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clearProgress()
	if w.opts.Silent || s == nil {
		return nil
	}
	_, err := io.WriteString(w.out, FormatSummary(s))
	return err
}

func (w *ConsoleWriter) drawProgress() {
	if !w.progress || w.opts.Stats == nil {
		return
	}
	st := w.opts.Stats()
	width := ui.Width(w.err, 80) - 40
	if width > 40 {
		width = 40
	}
	full, empty := ui.Icon(w.err, "█", "#"), ui.Icon(w.err, "░", ".")
	fmt.Fprintf(w.err, "\r%s %s",
		ui.ProgressBar(int(st.Completed), int(st.Total), width, full, empty),
		ui.VulnerableStyle.Render(strconv.FormatInt(st.Vulnerable, 10)+" vuln"))
	w.drawn = true
}

func (w *ConsoleWriter) clearProgress() {
	if !w.drawn {
		return
	}
	fmt.Fprint(w.err, "\r\033[K")
	w.drawn = false
}

// FormatFinding renders a vulnerable result on one line:
// [level] [VULN] name url [status] [latency]
func FormatFinding(res *engine.ScanResult) string {
	return strings.Join([]string{
		ui.Bracket(ui.SeverityStyle(res.Level).Render(strings.ToLower(res.Level))),
		ui.Bracket(ui.VulnerableStyle.Render("VULN")),
		ui.StatValueStyle.Render(res.POCName),
		ui.URLStyle.Render(res.RequestURL),
		statusBracket(res.StatusCode),
		ui.Bracket(ui.StatLabelStyle.Render(ui.FormatLatency(res.ResponseTimeMs))),
	}, " ")
}

// FormatSafe renders a probe that completed without a match.
func FormatSafe(res *engine.ScanResult) string {
	return strings.Join([]string{
		ui.Bracket(ui.SeverityStyle(res.Level).Render(strings.ToLower(res.Level))),
		ui.Bracket(ui.SafeStyle.Render("safe")),
		res.POCName,
		statusBracket(res.StatusCode),
		ui.Bracket(ui.StatLabelStyle.Render(ui.FormatLatency(res.ResponseTimeMs))),
	}, " ")
}

// FormatError renders a probe that failed before a verdict.
func FormatError(res *engine.ScanResult) string {
	return fmt.Sprintf("%s %s %s",
		ui.Bracket(ui.ErrorStyle.Render("ERR")),
		res.POCName,
		ui.SubtitleStyle.Render(ui.Truncate(res.Evidence, 80)),
	)
}

func statusBracket(code string) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		return ui.Bracket(ui.StatLabelStyle.Render("---"))
	}
	return ui.Bracket(ui.StatusCodeStyle(n).Render(code))
}

// FormatSummary renders the end-of-run block.
func FormatSummary(s *metrics.Summary) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", ui.ConfigLabelStyle.Render(label), ui.ConfigValueStyle.Render(value))
	}

	b.WriteString("\n" + ui.TitleStyle.Render("Scan Summary") + "\n")
	row("Target", s.Target)
	if s.RunID != "" {
		row("Run", s.RunID)
	}
	row("Probes", strconv.Itoa(s.Total))
	vuln := strconv.Itoa(s.Vulnerable)
	if s.Vulnerable > 0 {
		vuln = ui.VulnerableStyle.Render(vuln)
	}
	row("Vulnerable", vuln)
	row("Safe", strconv.Itoa(s.Safe))
	row("Errors", strconv.Itoa(s.Errors))
	row("Duration", fmt.Sprintf("%.2fs", s.Duration))
	if s.Total > s.Errors {
		row("Latency", fmt.Sprintf("avg %.0fms  p50 %.0fms  p95 %.0fms  max %.0fms",
			s.AvgLatencyMs, s.P50LatencyMs, s.P95LatencyMs, s.MaxLatencyMs))
	}
	if len(s.ByLevel) > 0 {
		levels := make([]string, 0, len(s.ByLevel))
		for lvl := range s.ByLevel {
			levels = append(levels, lvl)
		}
		sort.Strings(levels)
		parts := make([]string, len(levels))
		for i, lvl := range levels {
			parts[i] = ui.SeverityStyle(lvl).Render(lvl) + "=" + strconv.Itoa(s.ByLevel[lvl])
		}
		row("By level", strings.Join(parts, " "))
	}
	return b.String()
}
