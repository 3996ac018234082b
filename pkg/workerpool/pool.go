// Package workerpool provides a fixed-width goroutine pool with FIFO task
// dispatch and futures for collecting results in submission order.
package workerpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed is returned for work submitted after Close.
	ErrClosed = errors.New("workerpool: pool is closed")

	// ErrTaskPanic wraps a panic raised by a task.
	ErrTaskPanic = errors.New("workerpool: task panicked")
)

// Pool runs tasks on at most Cap() goroutines. Workers start lazily and
// live until Close.
type Pool struct {
	workers int32
	tasks   chan func()
	running int32

	// mu guards closed against a concurrent Submit sending on tasks.
	mu     sync.RWMutex
	closed bool

	wg sync.WaitGroup
}

// New creates a pool with the given width. Non-positive widths fall back
// to GOMAXPROCS.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		workers: int32(workers),
		tasks:   make(chan func(), workers*16),
	}
}

// Submit queues task. It blocks while the queue is full and returns false
// if the pool is closed.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	for {
		running := atomic.LoadInt32(&p.running)
		if running >= p.workers {
			break
		}
		if atomic.CompareAndSwapInt32(&p.running, running, running+1) {
			p.wg.Add(1)
			go p.worker()
			break
		}
	}

	p.tasks <- task
	return true
}

func (p *Pool) worker() {
	defer func() {
		if r := recover(); r != nil {
			// Replace ourselves; running and wg stay as they are.
			go p.worker()
			return
		}
		atomic.AddInt32(&p.running, -1)
		p.wg.Done()
	}()

	for task := range p.tasks {
		if task != nil {
			task()
		}
	}
}

// Running returns the current number of worker goroutines.
func (p *Pool) Running() int {
	return int(atomic.LoadInt32(&p.running))
}

// Cap returns the pool width.
func (p *Pool) Cap() int {
	return int(p.workers)
}

// Close stops accepting tasks, lets queued ones finish and waits for the
// workers to exit. Calling Close more than once is safe.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

// IsClosed returns true if the pool is closed.
func (p *Pool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Future is the pending result of a task started with Go.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Wait blocks until the task finishes. err is ErrClosed if the task was
// never run, or wraps ErrTaskPanic if it panicked.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Go runs fn on p and returns its Future. A panic in fn resolves the
// future with an error instead of reaching the worker.
func Go[T any](p *Pool, fn func() T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	ok := p.Submit(func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
			}
		}()
		f.val = fn()
	})
	if !ok {
		f.err = ErrClosed
		close(f.done)
	}
	return f
}
