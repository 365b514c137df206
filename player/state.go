// Package player implements the atomic state machine that coordinates the
// pipeline's producer/consumer threads (capture/encode/send on the
// controller side, receive/decode/render on the controlled side).
//
// A mutex-guarded enum with an update helper that notifies observers,
// plus a fixed transition table and blocking waiters: the state machine
// gates entire worker loops rather than just reporting status.
package player

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is one node of the player state machine.
type State int

const (
	Idle State = iota
	Opening
	Stopped
	Playing
	Paused
	Seeking
	Buffering
	Error
)

var stateNames = map[State]string{
	Idle:      "idle",
	Opening:   "opening",
	Stopped:   "stopped",
	Playing:   "playing",
	Paused:    "paused",
	Seeking:   "seeking",
	Buffering: "buffering",
	Error:     "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// transitions enumerates every accepted From->To edge in the state graph.
var transitions = map[State]map[State]bool{
	Idle:      {Opening: true},
	Opening:   {Stopped: true, Error: true},
	Stopped:   {Idle: true, Playing: true, Seeking: true},
	Playing:   {Stopped: true, Paused: true, Seeking: true, Buffering: true, Error: true},
	Paused:    {Stopped: true, Playing: true, Seeking: true},
	Seeking:   {Stopped: true, Playing: true, Paused: true, Buffering: true, Error: true},
	Buffering: {Stopped: true, Playing: true, Error: true},
	Error:     {Idle: true, Stopped: true},
}

// ChangeCallback is invoked on the thread that performs a transition.
type ChangeCallback func(from, to State)

// Manager is a linearizable state machine: every transition is checked
// against the table and applied under a single mutex, and that mutex
// (which also protects the observer list) is never held across a callback
// invocation so observers may safely call back into the manager.
type Manager struct {
	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	observers []ChangeCallback
}

// NewManager creates a Manager starting in Idle.
func NewManager() *Manager {
	m := &Manager{state: Idle}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// GetState returns the current state.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsPlaying, IsPaused, etc. are convenience predicates over GetState.
func (m *Manager) IsPlaying() bool   { return m.GetState() == Playing }
func (m *Manager) IsPaused() bool    { return m.GetState() == Paused }
func (m *Manager) IsStopped() bool   { return m.GetState() == Stopped }
func (m *Manager) IsBuffering() bool { return m.GetState() == Buffering }
func (m *Manager) IsError() bool     { return m.GetState() == Error }

// ShouldStop reports whether worker loops should exit: true in idle,
// stopped, or error.
func (m *Manager) ShouldStop() bool {
	switch m.GetState() {
	case Idle, Stopped, Error:
		return true
	default:
		return false
	}
}

// ShouldPause reports whether worker loops should throttle: true in
// paused, buffering, or seeking.
func (m *Manager) ShouldPause() bool {
	switch m.GetState() {
	case Paused, Buffering, Seeking:
		return true
	default:
		return false
	}
}

// RequestStateChange attempts an atomic transition to target. It returns
// false without mutating state if the transition is not in the table,
// logging a warning; it is never fatal.
func (m *Manager) RequestStateChange(target State) bool {
	m.mu.Lock()

	from := m.state
	allowed := transitions[from][target]
	if !allowed {
		m.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Manager.RequestStateChange",
			"from":     from.String(),
			"to":       target.String(),
		}).Warn("rejected invalid player state transition")
		return false
	}

	m.state = target
	observers := append([]ChangeCallback(nil), m.observers...)
	m.cond.Broadcast()
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Manager.RequestStateChange",
		"from":     from.String(),
		"to":       target.String(),
	}).Info("player state transition")

	for _, cb := range observers {
		cb(from, target)
	}
	return true
}

// WaitForResume blocks until the state becomes Playing or ShouldStop
// becomes true, or until timeout elapses (0 waits indefinitely). It is
// used by worker threads to throttle during pause/buffering/seeking
// without busy-waiting.
func (m *Manager) WaitForResume(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		switch m.state {
		case Playing:
			return true
		case Idle, Stopped, Error:
			return false
		}

		if timeout <= 0 {
			m.cond.Wait()
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return m.state == Playing
		}
		if !m.timedWait(remaining) {
			return m.state == Playing
		}
	}
}

// timedWait waits on the manager's condition variable for at most d,
// returning false on timeout. Mirrors the queue package's cond+timer
// approach to bounding a condition wait without a native timed Cond.Wait.
func (m *Manager) timedWait(d time.Duration) bool {
	timedOut := false
	timer := time.AfterFunc(d, func() {
		m.mu.Lock()
		timedOut = true
		m.mu.Unlock()
		m.cond.Broadcast()
	})
	defer timer.Stop()

	m.cond.Wait()
	return !timedOut
}

// OnChange registers an observer invoked after every accepted transition.
func (m *Manager) OnChange(cb ChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, cb)
}
