package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Submit(t *testing.T) {
	p := New(4)
	defer p.Close()

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
	}

	wg.Wait()

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestPool_NeverExceedsWidth(t *testing.T) {
	p := New(3)
	defer p.Close()

	var active, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			n := atomic.AddInt64(&active, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&active, -1)
		})
	}
	wg.Wait()

	if peak > 3 {
		t.Errorf("Expected at most 3 concurrent tasks, saw %d", peak)
	}
	if p.Running() > 3 {
		t.Errorf("Expected at most 3 workers, got %d", p.Running())
	}
}

func TestPool_Running(t *testing.T) {
	p := New(4)
	defer p.Close()

	blocker := make(chan struct{})
	for i := 0; i < 4; i++ {
		p.Submit(func() {
			<-blocker
		})
	}

	time.Sleep(10 * time.Millisecond)

	if running := p.Running(); running != 4 {
		t.Errorf("Expected 4 running workers, got %d", running)
	}

	close(blocker)
}

func TestPool_Close(t *testing.T) {
	p := New(4)

	var counter int64
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&counter, 1)
		})
	}

	// Close drains queued tasks.
	p.Close()

	if counter != 10 {
		t.Errorf("Expected queued tasks to finish, got %d", counter)
	}
	if !p.IsClosed() {
		t.Error("Pool should be closed")
	}
	if p.Submit(func() {}) {
		t.Error("Submit should fail after close")
	}
	if p.Running() != 0 {
		t.Errorf("Expected 0 workers after close, got %d", p.Running())
	}
}

func TestPool_DoubleClose_NoPanic(t *testing.T) {
	p := New(2)
	p.Close()
	p.Close()
}

func TestPool_ConcurrentSubmitAndClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := New(2)
		var wg sync.WaitGroup
		for j := 0; j < 10; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Submit(func() {})
			}()
		}
		p.Close()
		wg.Wait()
	}
}

func TestPool_ZeroWorkers(t *testing.T) {
	p := New(0)
	defer p.Close()

	if p.Cap() <= 0 {
		t.Errorf("Expected positive capacity, got %d", p.Cap())
	}
}

func TestPool_PanicRecovery(t *testing.T) {
	p := New(2)
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() {
		defer wg.Done()
		panic("test panic")
	})
	wg.Wait()

	var counter int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
	}
	wg.Wait()

	if counter != 10 {
		t.Errorf("Expected 10 tasks after panic, got %d", counter)
	}
	if p.Running() > p.Cap() {
		t.Errorf("Running %d exceeds cap %d after panic", p.Running(), p.Cap())
	}
}

func TestGo_ResultsInSubmissionOrder(t *testing.T) {
	p := New(3)
	defer p.Close()

	futures := make([]*Future[int], 20)
	for i := range futures {
		i := i
		futures[i] = Go(p, func() int {
			// Later tasks finish first.
			time.Sleep(time.Duration(20-i) * time.Millisecond / 4)
			return i
		})
	}

	for i, f := range futures {
		v, err := f.Wait()
		if err != nil {
			t.Fatalf("future %d: %v", i, err)
		}
		if v != i {
			t.Errorf("future %d returned %d", i, v)
		}
	}
}

func TestGo_PanicBecomesError(t *testing.T) {
	p := New(1)
	defer p.Close()

	f := Go(p, func() string { panic("kaboom") })
	_, err := f.Wait()
	if !errors.Is(err, ErrTaskPanic) {
		t.Fatalf("Expected ErrTaskPanic, got %v", err)
	}

	v, err := Go(p, func() string { return "still alive" }).Wait()
	if err != nil || v != "still alive" {
		t.Errorf("Expected pool to keep working, got %q, %v", v, err)
	}
}

func TestGo_ClosedPool(t *testing.T) {
	p := New(1)
	p.Close()

	_, err := Go(p, func() int { return 1 }).Wait()
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestFuture_Done(t *testing.T) {
	p := New(1)
	defer p.Close()

	f := Go(p, func() int { return 7 })
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("future never completed")
	}
}
