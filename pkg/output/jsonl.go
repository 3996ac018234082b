package output

import (
	"errors"
	"io"
	"sync"

	"github.com/pocscan/pocscan/pkg/engine"
	"github.com/pocscan/pocscan/pkg/jsonutil"
	"github.com/pocscan/pocscan/pkg/metrics"
)

// JSONLWriter streams each result as one JSON line as soon as it is
// collected. Finish appends a final {"summary": ...} line.
type JSONLWriter struct {
	closer  io.Closer
	encoder *jsonutil.Encoder
	err     error
	mu      sync.Mutex
}

// NewJSONLWriter writes to w. A non-nil closer is closed by Finish.
func NewJSONLWriter(w io.Writer, closer io.Closer) *JSONLWriter {
	return &JSONLWriter{closer: closer, encoder: jsonutil.NewStreamEncoder(w)}
}

func (jw *JSONLWriter) OnLog(string)   {}
func (jw *JSONLWriter) OnProgress(int) {}

// OnResult writes one line. The first write error is kept and returned
// by Finish; later results are dropped.
func (jw *JSONLWriter) OnResult(res *engine.ScanResult) {
	if res == nil {
		return
	}
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.err != nil {
		return
	}
	jw.err = jw.encoder.Encode(res)
}

func (jw *JSONLWriter) Finish(summary *metrics.Summary) (retErr error) {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closer != nil {
		defer func() {
			retErr = errors.Join(retErr, jw.closer.Close())
			jw.closer = nil
		}()
	}
	if jw.err != nil {
		return jw.err
	}
	if summary == nil {
		return nil
	}
	return jw.encoder.Encode(struct {
		Summary *metrics.Summary `json:"summary"`
	}{summary})
}
