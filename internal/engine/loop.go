package engine

import (
	"sync"
	"sync/atomic"
)

// Loop owns the single thread the recursive search runs on. The front end
// talks to it only through thread-safe signals: Pause requests cooperative
// cancellation (observed via KeepGoing), Resume arms another run of the
// attached function, WaitForCompletion blocks until the worker is idle.
type Loop struct {
	mu   sync.Mutex
	cond *sync.Cond

	fn      func()
	armed   bool
	running bool
	closed  bool

	keep atomic.Bool
}

// Start attaches the long-running function and launches the worker
// goroutine in the idle state.
func (l *Loop) Start(fn func()) {
	l.cond = sync.NewCond(&l.mu)
	l.fn = fn
	go l.run()
}

func (l *Loop) run() {
	for {
		l.mu.Lock()
		for !l.armed && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.mu.Unlock()
			return
		}
		l.armed = false
		l.running = true
		l.mu.Unlock()

		l.fn()

		l.mu.Lock()
		l.running = false
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}

// KeepGoing is polled by the search at every recursion entry and inside
// its periodic time check.
func (l *Loop) KeepGoing() bool {
	return l.keep.Load()
}

// Pause requests cancellation of the current run. The worker observes it
// cooperatively; use WaitForCompletion to rendezvous.
func (l *Loop) Pause() {
	l.keep.Store(false)
}

// Resume re-arms the loop for a new run of the attached function.
func (l *Loop) Resume() {
	l.keep.Store(true)
	l.mu.Lock()
	l.armed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

// WaitForCompletion blocks until the worker has gone idle.
func (l *Loop) WaitForCompletion() {
	l.mu.Lock()
	for l.running || l.armed {
		l.cond.Wait()
	}
	l.mu.Unlock()
}

// Close terminates the worker goroutine once it is idle.
func (l *Loop) Close() {
	l.Pause()
	l.WaitForCompletion()
	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}
