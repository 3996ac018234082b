package scanner

import (
	"sync"

	"github.com/pocscan/pocscan/pkg/engine"
)

// Listener observes a scan run. OnLog fires when a probe starts and for
// run-level messages, OnProgress once per finished probe with delta 1, and
// OnResult once per collected result in submission order.
//
// The scanner serializes calls, so implementations need no locking of
// their own.
type Listener interface {
	OnLog(msg string)
	OnProgress(delta int)
	OnResult(res *engine.ScanResult)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Log      func(msg string)
	Progress func(delta int)
	Result   func(res *engine.ScanResult)
}

func (f ListenerFuncs) OnLog(msg string) {
	if f.Log != nil {
		f.Log(msg)
	}
}

func (f ListenerFuncs) OnProgress(delta int) {
	if f.Progress != nil {
		f.Progress(delta)
	}
}

func (f ListenerFuncs) OnResult(res *engine.ScanResult) {
	if f.Result != nil {
		f.Result(res)
	}
}

// Multi fans every event out to each non-nil listener in order.
func Multi(ls ...Listener) Listener {
	out := make(multi, 0, len(ls))
	for _, l := range ls {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

type multi []Listener

func (m multi) OnLog(msg string) {
	for _, l := range m {
		l.OnLog(msg)
	}
}

func (m multi) OnProgress(delta int) {
	for _, l := range m {
		l.OnProgress(delta)
	}
}

func (m multi) OnResult(res *engine.ScanResult) {
	for _, l := range m {
		l.OnResult(res)
	}
}

// serialListener funnels calls from worker goroutines through one lock.
type serialListener struct {
	mu sync.Mutex
	l  Listener
}

func (s *serialListener) OnLog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.l.OnLog(msg)
}

func (s *serialListener) OnProgress(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.l.OnProgress(delta)
}

func (s *serialListener) OnResult(res *engine.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.l.OnResult(res)
}
