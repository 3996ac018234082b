package metrics

import (
	"sort"
	"time"

	"github.com/pocscan/pocscan/pkg/engine"
)

// Summary contains the aggregate numbers of one finished scan.
type Summary struct {
	Target     string  `json:"target"`
	RunID      string  `json:"run_id,omitempty"`
	Duration   float64 `json:"duration_seconds"`
	Total      int     `json:"total"`
	Vulnerable int     `json:"vulnerable"`
	Safe       int     `json:"safe"`
	Errors     int     `json:"errors"`

	// Latency in milliseconds over probes that got a response.
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	// ByLevel counts vulnerable findings per POC level.
	ByLevel map[string]int `json:"by_level,omitempty"`
}

// Calculator accumulates results and produces a Summary.
type Calculator struct {
	results   []*engine.ScanResult
	latencies []float64
}

// NewCalculator creates an empty calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Add records one result. Nil results are ignored.
func (c *Calculator) Add(res *engine.ScanResult) {
	if res == nil {
		return
	}
	c.results = append(c.results, res)
	if !res.Failed() {
		c.latencies = append(c.latencies, float64(res.ResponseTimeMs))
	}
}

// AddAll records every result in rs.
func (c *Calculator) AddAll(rs []*engine.ScanResult) {
	for _, r := range rs {
		c.Add(r)
	}
}

// Calculate builds the summary for target over the results added so far.
func (c *Calculator) Calculate(target, runID string, d time.Duration) *Summary {
	s := &Summary{
		Target:   target,
		RunID:    runID,
		Duration: d.Seconds(),
		Total:    len(c.results),
	}
	for _, r := range c.results {
		switch Outcome(r) {
		case OutcomeVulnerable:
			s.Vulnerable++
			if s.ByLevel == nil {
				s.ByLevel = make(map[string]int)
			}
			s.ByLevel[r.Level]++
		case OutcomeError:
			s.Errors++
		default:
			s.Safe++
		}
	}
	c.calculateLatency(s)
	return s
}

func (c *Calculator) calculateLatency(s *Summary) {
	if len(c.latencies) == 0 {
		return
	}

	sorted := make([]float64, len(c.latencies))
	copy(sorted, c.latencies)
	sort.Float64s(sorted)

	sum := 0.0
	for _, l := range sorted {
		sum += l
	}
	s.AvgLatencyMs = sum / float64(len(sorted))
	s.P50LatencyMs = percentile(sorted, 50)
	s.P95LatencyMs = percentile(sorted, 95)
	s.P99LatencyMs = percentile(sorted, 99)
	s.MaxLatencyMs = sorted[len(sorted)-1]
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * float64(p) / 100)
	return sorted[idx]
}
