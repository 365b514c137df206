// Package timing provides the periodic/one-shot callback driver used by
// components that need their own clock (polling a track's jitter buffer,
// retrying unacked data-channel messages).
//
// Each Timer owns a dedicated goroutine with a start/stopChan/running
// flag lifecycle. Precision has two
// modes: Standard sleeps via time.Timer (~1ms jitter under the Go
// runtime's scheduler, which is what the stdlib actually delivers without
// OS-specific multimedia-timer or nanosleep bindings); HighPrecision still
// uses time.Timer but recomputes its deadline relative to the previous
// scheduled deadline rather than the wake time, which is the portable
// part of drift correction. True sub-millisecond OS timer APIs (Windows
// multimedia timers, Linux nanosleep, macOS mach_wait_until) are
// platform-specific syscalls not bound here; HighPrecision only changes the
// drift-correction strategy, not the underlying sleep primitive.
package timing

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Precision selects how a Timer schedules its next fire relative to drift.
type Precision int

const (
	// Standard re-arms a fresh interval-length timer after each fire.
	Standard Precision = iota
	// HighPrecision schedules the next deadline relative to the previous
	// scheduled deadline, catching up smoothly unless it has fallen more
	// than one interval behind wall-clock time, in which case it resets
	// to now+interval to avoid a burst of catch-up fires.
	HighPrecision
)

// Kind selects single-shot or repeating behavior.
type Kind int

const (
	// OneShot fires the callback once and stops.
	OneShot Kind = iota
	// Periodic fires the callback repeatedly at the configured interval.
	Periodic
)

// Timer drives a single-shot or repeating callback on a dedicated
// goroutine. The callback is never invoked re-entrantly: Timer waits for
// one invocation to return before scheduling or checking for the next.
type Timer struct {
	mu          sync.Mutex
	callback    func()
	interval    time.Duration
	kind        Kind
	precision   Precision
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	execCount   uint64
	lastExecDur time.Duration
}

// New creates a Timer with the given interval, initially stopped.
func New(interval time.Duration) *Timer {
	return &Timer{interval: interval}
}

// SetCallback sets the function invoked on each fire. Must be called
// before Start; changing it while running is undefined.
func (t *Timer) SetCallback(cb func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = cb
}

// SetInterval updates the fire interval. Takes effect on the next
// scheduling decision.
func (t *Timer) SetInterval(interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = interval
}

// SetType selects OneShot or Periodic behavior.
func (t *Timer) SetType(kind Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kind = kind
}

// SetPrecision selects the drift-correction strategy.
func (t *Timer) SetPrecision(p Precision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.precision = p
}

// Start begins firing the callback. It is a no-op if already running.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	cb := t.callback
	interval := t.interval
	kind := t.kind
	precision := t.precision
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Timer.Start",
		"interval":  interval,
		"kind":      kind,
		"precision": precision,
	}).Debug("timer started")

	go t.run(cb, interval, kind, precision, stopCh, doneCh)
}

// run is the dedicated timer goroutine. It never invokes cb concurrently
// with itself: each iteration waits for cb to return before the next wait
// begins, and a panic escaping cb is recovered and logged rather than
// allowed to crash the process.
func (t *Timer) run(cb func(), interval time.Duration, kind Kind, precision Precision, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	if cb == nil || interval <= 0 {
		return
	}

	deadline := time.Now().Add(interval)
	for {
		wait := time.Until(deadline)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		t.invoke(cb)

		if kind == OneShot {
			t.mu.Lock()
			if t.doneCh == doneCh {
				t.running = false
			}
			t.mu.Unlock()
			return
		}

		switch precision {
		case HighPrecision:
			deadline = deadline.Add(interval)
			if time.Now().Sub(deadline) > interval {
				deadline = time.Now().Add(interval)
			}
		default:
			deadline = time.Now().Add(interval)
		}
	}
}

func (t *Timer) invoke(cb func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Timer.invoke",
				"panic":    r,
			}).Error("timer callback panicked")
		}
		elapsed := time.Since(start)
		t.mu.Lock()
		t.execCount++
		t.lastExecDur = elapsed
		t.mu.Unlock()
	}()
	cb()
}

// Stop halts the timer synchronously: it does not return until the timer
// goroutine has exited and will not fire again.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Restart stops (if running) and starts the timer again.
func (t *Timer) Restart() {
	t.Stop()
	t.Start()
}

// IsRunning reports whether the timer is currently active.
func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// ExecutionCount returns how many times the callback has fired.
func (t *Timer) ExecutionCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.execCount
}

// LastExecutionTime returns how long the most recent callback invocation
// took to return.
func (t *Timer) LastExecutionTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastExecDur
}
