// Package metrics turns scan results into numbers: a Prometheus collector
// that can be scraped while a run is in flight, and a latency/verdict
// summary computed once a run has finished.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pocscan/pocscan/pkg/duration"
	"github.com/pocscan/pocscan/pkg/engine"
	"github.com/pocscan/pocscan/pkg/scanner"
)

// Compile-time interface check.
var _ scanner.Listener = (*Collector)(nil)

// Outcome labels used on the per-probe metrics.
const (
	OutcomeVulnerable = "vulnerable"
	OutcomeSafe       = "safe"
	OutcomeError      = "error"
)

// Collector is a scanner.Listener that records every probe into its own
// Prometheus registry. Serve exposes the registry over HTTP.
type Collector struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	probesTotal     *prometheus.CounterVec
	vulnerableTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	finishedTotal   prometheus.Counter
	scanDuration    prometheus.Gauge
	responseTime    *prometheus.HistogramVec

	mu     sync.Mutex
	server *http.Server
	addr   string
	closed bool
}

// NewCollector creates a collector with a private registry. A nil logger
// falls back to slog.Default.
func NewCollector(logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return c, nil
}

func (c *Collector) initMetrics() error {
	c.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pocscan_probes_total",
			Help: "Total number of POC probes executed",
		},
		[]string{"level", "outcome"},
	)
	c.vulnerableTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pocscan_vulnerable_total",
			Help: "Total number of probes whose response matched",
		},
		[]string{"poc", "level"},
	)
	c.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pocscan_errors_total",
			Help: "Total number of probes that failed before a verdict",
		},
		[]string{"level"},
	)
	c.finishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pocscan_probes_finished_total",
		Help: "Probes finished, including ones that produced no result",
	})
	c.scanDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pocscan_scan_duration_seconds",
		Help: "Wall-clock duration of the last finished scan",
	})
	c.responseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pocscan_response_time_seconds",
			Help:    "Response time distribution in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"outcome"},
	)

	collectors := []prometheus.Collector{
		c.probesTotal,
		c.vulnerableTotal,
		c.errorsTotal,
		c.finishedTotal,
		c.scanDuration,
		c.responseTime,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (c *Collector) OnLog(string) {}

func (c *Collector) OnProgress(delta int) {
	if delta > 0 {
		c.finishedTotal.Add(float64(delta))
	}
}

// OnResult records the verdict and timing of one probe.
func (c *Collector) OnResult(res *engine.ScanResult) {
	if res == nil {
		return
	}
	outcome := Outcome(res)
	c.probesTotal.WithLabelValues(res.Level, outcome).Inc()
	switch outcome {
	case OutcomeVulnerable:
		c.vulnerableTotal.WithLabelValues(res.POCName, res.Level).Inc()
	case OutcomeError:
		c.errorsTotal.WithLabelValues(res.Level).Inc()
	}
	if res.ResponseTimeMs > 0 {
		c.responseTime.WithLabelValues(outcome).Observe(float64(res.ResponseTimeMs) / 1000.0)
	}
}

// ObserveScan records the duration of a finished run.
func (c *Collector) ObserveScan(d time.Duration) {
	c.scanDuration.Set(d.Seconds())
}

// Serve starts the metrics server on addr and returns once the listener is
// bound. The server runs until Close.
func (c *Collector) Serve(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("metrics: collector closed")
	}
	if c.server != nil {
		return fmt.Errorf("metrics: already serving on %s", c.addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	c.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  duration.MetricsReadTimeout,
		WriteTimeout: duration.MetricsWriteTimeout,
	}
	c.addr = ln.Addr().String()

	srv := c.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	c.logger.Debug("metrics server listening", slog.String("addr", c.addr), slog.String("path", path))
	return nil
}

// Addr returns the bound address, or "" when not serving.
func (c *Collector) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Close shuts down the metrics server. It is safe to call more than once.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), duration.TelemetryShutdown)
	defer cancel()
	return c.server.Shutdown(ctx)
}

// Outcome classifies a result for metric labels.
func Outcome(res *engine.ScanResult) string {
	switch {
	case res.Vulnerable:
		return OutcomeVulnerable
	case res.Failed():
		return OutcomeError
	default:
		return OutcomeSafe
	}
}
