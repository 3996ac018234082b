package output

import (
	"errors"
	"io"
	"sync"

	"github.com/pocscan/pocscan/pkg/engine"
	"github.com/pocscan/pocscan/pkg/jsonutil"
	"github.com/pocscan/pocscan/pkg/metrics"
)

// Report is the document written by JSONWriter.
type Report struct {
	Summary *metrics.Summary     `json:"summary"`
	Results []*engine.ScanResult `json:"results"`
}

// JSONWriter buffers results and writes one indented Report on Finish.
type JSONWriter struct {
	w       io.Writer
	closer  io.Closer
	results []*engine.ScanResult
	mu      sync.Mutex
}

// NewJSONWriter writes to w. A non-nil closer is closed by Finish.
func NewJSONWriter(w io.Writer, closer io.Closer) *JSONWriter {
	return &JSONWriter{w: w, closer: closer, results: make([]*engine.ScanResult, 0)}
}

func (jw *JSONWriter) OnLog(string)   {}
func (jw *JSONWriter) OnProgress(int) {}

func (jw *JSONWriter) OnResult(res *engine.ScanResult) {
	if res == nil {
		return
	}
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.results = append(jw.results, res)
}

func (jw *JSONWriter) Finish(summary *metrics.Summary) (retErr error) {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closer != nil {
		defer func() {
			retErr = errors.Join(retErr, jw.closer.Close())
			jw.closer = nil
		}()
	}

	enc := jsonutil.NewStreamEncoder(jw.w)
	enc.SetIndent("  ")
	return enc.Encode(Report{Summary: summary, Results: jw.results})
}
