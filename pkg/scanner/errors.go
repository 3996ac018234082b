package scanner

import "github.com/pocscan/pocscan/pkg/workerpool"

// Sentinel errors. Callers should use errors.Is() to check for these.
var (
	// ErrClosed is returned by Scan after Close.
	ErrClosed = workerpool.ErrClosed

	// ErrTaskPanic marks a probe task that died outside the executor's
	// own recovery. Such probes are logged and left out of the results.
	ErrTaskPanic = workerpool.ErrTaskPanic
)
