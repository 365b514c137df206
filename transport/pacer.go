package transport

import (
	"sync"
	"time"
)

// Pacer is a token-bucket style send-rate shaper: up to maxPacketsPerBatch
// sends are allowed per pacingInterval, with no back-pressure queue of its
// own; a caller the pacer turns away must drop the packet or buffer it
// elsewhere. Hand-rolled rather than built on a generic rate limiter:
// the fixed-batch-per-interval shape with an explicit OnPacketSent
// accounting step does not map onto token-per-time-unit limiters.
type Pacer struct {
	mu                 sync.Mutex
	pacingInterval     time.Duration
	maxPacketsPerBatch int
	batchStart         time.Time
	batchCount         int
}

// NewPacer creates a pacer allowing maxPacketsPerBatch sends per
// pacingInterval.
func NewPacer(pacingInterval time.Duration, maxPacketsPerBatch int) *Pacer {
	return &Pacer{
		pacingInterval:     pacingInterval,
		maxPacketsPerBatch: maxPacketsPerBatch,
	}
}

// CanSend reports whether another send is currently allowed, without
// changing any state. If the pacing interval has elapsed since the
// current batch started, true is returned (the next OnPacketSent starts a
// new batch); otherwise true is returned while the batch counter is
// below the configured maximum.
func (p *Pacer) CanSend() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.batchStart.IsZero() || now.Sub(p.batchStart) >= p.pacingInterval {
		return true
	}
	return p.batchCount < p.maxPacketsPerBatch
}

// OnPacketSent records a successful send, advancing the batch counter and
// starting a new batch when the interval has elapsed.
func (p *Pacer) OnPacketSent() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.batchStart.IsZero() || now.Sub(p.batchStart) >= p.pacingInterval {
		p.batchStart = now
		p.batchCount = 1
		return
	}
	p.batchCount++
}

// Reset clears pacing context, used on state transitions (e.g. reconnect)
// that invalidate the current batch.
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batchStart = time.Time{}
	p.batchCount = 0
}
