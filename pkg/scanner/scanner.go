// Package scanner runs many POCs against one target on a bounded worker
// pool and collects their results in submission order.
//
// A Scanner owns its pool: create it, run any number of scans, then Close.
// Changing the concurrency replaces the pool between runs.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pocscan/pocscan/pkg/defaults"
	"github.com/pocscan/pocscan/pkg/engine"
	"github.com/pocscan/pocscan/pkg/poc"
	"github.com/pocscan/pocscan/pkg/ratelimit"
	"github.com/pocscan/pocscan/pkg/workerpool"
)

// Prober executes one POC. *engine.Executor implements it.
type Prober interface {
	Execute(ctx context.Context, p *poc.POC, target string) *engine.ScanResult
}

var _ Prober = (*engine.Executor)(nil)

// Config configures a Scanner.
type Config struct {
	// Concurrency is the worker pool width (default: 10)
	Concurrency int

	// RateLimit caps probe dispatch per second (0 = unlimited).
	// Ignored when Limiter is set.
	RateLimit int

	// Limiter paces dispatch and adapts to failing probes (optional)
	Limiter *ratelimit.Limiter

	// Logger for run-level events (default: slog.Default())
	Logger *slog.Logger

	// Tracer for the per-run span (default: global tracer)
	Tracer trace.Tracer
}

// Stats tracks execution statistics of the current or last run.
type Stats struct {
	Total      int64
	Completed  int64
	Vulnerable int64
	Errors     int64
	StartTime  time.Time
	Duration   time.Duration
}

// Progress returns completion percentage (0-100).
func (s Stats) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

// Scanner is the scan orchestrator.
type Scanner struct {
	prober  Prober
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer

	// runMu is held for a whole run; SetConcurrency and Close wait on it.
	runMu  sync.Mutex
	pool   *workerpool.Pool
	closed bool

	mu          sync.Mutex
	concurrency int
	results     []*engine.ScanResult
	runID       string
	start       time.Time
	elapsed     time.Duration

	total, completed, vulnerable, errored atomic.Int64
}

// New creates a Scanner running probes through prober.
func New(prober Prober, cfg Config) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	s := &Scanner{
		prober:      prober,
		logger:      cfg.Logger,
		tracer:      cfg.Tracer,
		concurrency: cfg.Concurrency,
		pool:        workerpool.New(cfg.Concurrency),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/pocscan/pocscan/pkg/scanner")
	}
	switch {
	case cfg.Limiter != nil:
		s.limiter = cfg.Limiter
	case cfg.RateLimit > 0:
		s.limiter = ratelimit.NewPerSecond(cfg.RateLimit)
	}
	return s
}

// SetConcurrency replaces the worker pool with one of width n. It waits for
// a running scan to finish first.
func (s *Scanner) SetConcurrency(n int) error {
	if n < 1 {
		return fmt.Errorf("scanner: concurrency must be positive, got %d", n)
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if n == s.concurrency {
		return nil
	}
	s.pool.Close()
	s.pool = workerpool.New(n)
	s.mu.Lock()
	s.concurrency = n
	s.mu.Unlock()
	return nil
}

// Concurrency returns the current pool width.
func (s *Scanner) Concurrency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.concurrency
}

// Close shuts the pool down. Further scans return ErrClosed.
func (s *Scanner) Close() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.pool.Close()
}

// ScanDirectory loads the POCs in dir and scans target with them. When
// nothing loads, the run ends before any probe is submitted: the listener
// gets a log line and the result is empty.
func (s *Scanner) ScanDirectory(ctx context.Context, target, dir string, l Listener) ([]*engine.ScanResult, error) {
	pocs, err := poc.LoadDirectory(dir, s.logger)
	if err != nil {
		s.reset(0)
		msg := fmt.Sprintf("no usable POC files found in %s", dir)
		s.logger.Warn(msg, slog.String("error", err.Error()))
		if l != nil {
			l.OnLog(msg)
		}
		return []*engine.ScanResult{}, err
	}
	if l != nil {
		l.OnLog(fmt.Sprintf("loaded %d POCs", len(pocs)))
	}
	return s.Scan(ctx, target, pocs, l)
}

// Scan executes every POC against target and returns the results in the
// order the POCs were given. A probe whose task fails outside the executor
// is logged and omitted. The only error is ErrClosed.
func (s *Scanner) Scan(ctx context.Context, target string, pocs []*poc.POC, l Listener) ([]*engine.ScanResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	if l == nil {
		l = ListenerFuncs{}
	}
	l = &serialListener{l: l}

	runID := s.reset(len(pocs))
	logger := s.logger.With(slog.String("run_id", runID))

	ctx, span := s.tracer.Start(ctx, "pocscan.scan",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("target", target),
			attribute.Int("pocs", len(pocs)),
			attribute.Int("concurrency", s.concurrency),
		))
	defer span.End()

	logger.Info("scan started", slog.String("target", target), slog.Int("pocs", len(pocs)), slog.Int("concurrency", s.concurrency))

	type task struct {
		future   *workerpool.Future[*engine.ScanResult]
		name     string
		reported atomic.Bool
	}
	tasks := make([]*task, len(pocs))

	for i, p := range pocs {
		t := &task{name: pocName(p)}
		tasks[i] = t
		t.future = workerpool.Go(s.pool, func() *engine.ScanResult {
			if s.limiter != nil {
				// A cancelled wait leaves ctx done; the probe then fails fast.
				_ = s.limiter.Wait(ctx)
			}
			l.OnLog("start scanning: " + t.name)
			res := s.prober.Execute(ctx, p, target)
			s.record(res)
			if s.limiter != nil {
				if res == nil || res.Failed() {
					s.limiter.OnError()
				} else {
					s.limiter.OnSuccess()
				}
			}
			t.reported.Store(true)
			l.OnProgress(1)
			return res
		})
	}

	results := make([]*engine.ScanResult, 0, len(pocs))
	for _, t := range tasks {
		res, err := t.future.Wait()
		if err != nil || res == nil {
			if err == nil {
				err = fmt.Errorf("%w: nil result", ErrTaskPanic)
			}
			s.errored.Add(1)
			logger.Error("scan task failed", slog.String("poc", t.name), slog.String("error", err.Error()))
			l.OnLog(fmt.Sprintf("scan task failed: %s: %v", t.name, err))
			if !t.reported.Load() {
				s.completed.Add(1)
				l.OnProgress(1)
			}
			continue
		}
		results = append(results, res)
		l.OnResult(res)
	}

	s.mu.Lock()
	s.results = results
	s.elapsed = time.Since(s.start)
	s.mu.Unlock()

	st := s.Stats()
	span.SetAttributes(
		attribute.Int64("vulnerable", st.Vulnerable),
		attribute.Int64("errors", st.Errors),
	)
	logger.Info("scan finished",
		slog.Int("results", len(results)),
		slog.Int64("vulnerable", st.Vulnerable),
		slog.Int64("errors", st.Errors),
		slog.Duration("elapsed", st.Duration))
	return results, nil
}

// reset clears the previous run and returns the new run ID.
func (s *Scanner) reset(total int) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.results = nil
	s.runID = id
	s.start = time.Now()
	s.elapsed = 0
	s.mu.Unlock()

	s.total.Store(int64(total))
	s.completed.Store(0)
	s.vulnerable.Store(0)
	s.errored.Store(0)
	return id
}

func (s *Scanner) record(res *engine.ScanResult) {
	s.completed.Add(1)
	switch {
	case res == nil:
	case res.Vulnerable:
		s.vulnerable.Add(1)
	case res.Failed():
		s.errored.Add(1)
	}
}

// Results returns a copy of the last run's results.
func (s *Scanner) Results() []*engine.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*engine.ScanResult, len(s.results))
	copy(out, s.results)
	return out
}

// RunID identifies the current or last run.
func (s *Scanner) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Stats returns a snapshot of the current or last run.
func (s *Scanner) Stats() Stats {
	s.mu.Lock()
	start, elapsed := s.start, s.elapsed
	s.mu.Unlock()
	if elapsed == 0 && !start.IsZero() {
		elapsed = time.Since(start)
	}
	return Stats{
		Total:      s.total.Load(),
		Completed:  s.completed.Load(),
		Vulnerable: s.vulnerable.Load(),
		Errors:     s.errored.Load(),
		StartTime:  start,
		Duration:   elapsed,
	}
}

func pocName(p *poc.POC) string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}
