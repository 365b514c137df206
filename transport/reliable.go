package transport

import (
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// RetryTimeout and MaxRetries are fixed policy, not configuration.
const (
	RetryTimeout = 50 * time.Millisecond
	MaxRetries   = 3
)

// pendingInputEvent is a sent-but-unacknowledged input event awaiting
// either an ack or a retry/abandon decision.
type pendingInputEvent struct {
	event      InputEvent
	sequence   uint16
	sentAt     time.Time
	retryCount int
}

// InputEventCallback is invoked on the receiver side for each decoded
// input event.
type InputEventCallback func(InputEvent)

// ReliableInputChannelStats is a snapshot of cumulative channel counters.
type ReliableInputChannelStats struct {
	Sent      uint64
	Acked     uint64
	Retried   uint64
	Abandoned uint64
}

// ReliableInputChannel retransmits small control payloads (input events)
// over an unreliable Connection using sequence numbers and cumulative
// acks: a FIFO of pending sends with a fixed retry policy. Retry
// timeout and budget are policy constants, not configuration.
type ReliableInputChannel struct {
	mu        sync.Mutex
	sender    *RtpSender
	nextSeq   uint16
	pending   []pendingInputEvent
	ackSeqOut uint16
	onEvent   InputEventCallback

	sent      uint64
	acked     uint64
	retried   uint64
	abandoned uint64
}

// NewReliableInputChannel creates a channel bound to sender, which must
// be non-nil (send operations fail with NotInitialized otherwise).
func NewReliableInputChannel(sender *RtpSender) *ReliableInputChannel {
	return &ReliableInputChannel{sender: sender}
}

// OnEvent registers the callback invoked for each received input event.
func (c *ReliableInputChannel) OnEvent(cb InputEventCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = cb
}

// Send assigns the next sequence, wraps event in an input-event control
// message, writes it via the sender, and records it as pending.
func (c *ReliableInputChannel) Send(event InputEvent) errs.Void {
	c.mu.Lock()
	if c.sender == nil {
		c.mu.Unlock()
		return errs.ErrVoid(errs.KindNotInitialized, "no connection bound")
	}
	seq := c.nextSeq
	c.nextSeq++
	c.mu.Unlock()

	nowMs := uint32(time.Now().UnixMilli())
	msg := EncodeControlMessage(ControlMessage{
		Type:        ControlInputEvent,
		Sequence:    seq,
		TimestampMs: nowMs,
		Payload:     EncodeInputEvent(event),
	})

	if res := c.sender.SendControl(msg, nowMs); res.IsErr() {
		return res
	}

	c.mu.Lock()
	c.pending = append(c.pending, pendingInputEvent{event: event, sequence: seq, sentAt: time.Now()})
	c.sent++
	c.mu.Unlock()
	return errs.OkVoid()
}

// OnAck pops every pending message whose sequence is <= the acked
// sequence (cumulative-ack semantics).
func (c *ReliableInputChannel) OnAck(ack AckPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.pending[:0]
	ackedCount := 0
	for _, p := range c.pending {
		if sequenceLessOrEqual(p.sequence, ack.AckedSequence) {
			ackedCount++
			continue
		}
		kept = append(kept, p)
	}
	c.pending = kept
	c.acked += uint64(ackedCount)
}

// sequenceLessOrEqual compares 16-bit sequence numbers allowing for
// wraparound, treating seq as "<=" ref if the forward distance from seq
// to ref is within half the sequence space.
func sequenceLessOrEqual(seq, ref uint16) bool {
	return ref-seq < 0x8000
}

// ProcessRetries resends every pending message older than RetryTimeout
// whose retry count is below MaxRetries, and abandons the rest. Intended
// to be driven periodically by the receive loop or a timer.
func (c *ReliableInputChannel) ProcessRetries() {
	c.mu.Lock()
	now := time.Now()
	var toResend []pendingInputEvent
	kept := c.pending[:0]
	for i := range c.pending {
		p := c.pending[i]
		if now.Sub(p.sentAt) < RetryTimeout {
			kept = append(kept, p)
			continue
		}
		if p.retryCount >= MaxRetries {
			c.abandoned++
			logrus.WithFields(logrus.Fields{
				"function": "ReliableInputChannel.ProcessRetries",
				"sequence": p.sequence,
			}).Warn("abandoning input event after max retries")
			continue
		}
		p.retryCount++
		p.sentAt = now
		toResend = append(toResend, p)
		kept = append(kept, p)
	}
	c.pending = kept
	sender := c.sender
	c.mu.Unlock()

	for _, p := range toResend {
		nowMs := uint32(time.Now().UnixMilli())
		msg := EncodeControlMessage(ControlMessage{
			Type:        ControlInputEvent,
			Sequence:    p.sequence,
			TimestampMs: nowMs,
			Payload:     EncodeInputEvent(p.event),
		})
		if res := sender.SendControl(msg, nowMs); res.IsOk() {
			c.mu.Lock()
			c.retried++
			c.mu.Unlock()
		}
	}
}

// OnControlMessage parses an inbound control envelope. If it carries an
// input event, the user callback fires and an input-ack is sent back.
func (c *ReliableInputChannel) OnControlMessage(data []byte) errs.Void {
	parsed := DecodeControlMessage(data)
	if parsed.IsErr() {
		return errs.ErrVoid(parsed.Code(), parsed.Message())
	}
	msg := parsed.Value()
	if msg.Type != ControlInputEvent {
		return errs.OkVoid()
	}

	eventRes := DecodeInputEvent(msg.Payload)
	if eventRes.IsErr() {
		return errs.ErrVoid(eventRes.Code(), eventRes.Message())
	}

	c.mu.Lock()
	cb := c.onEvent
	c.mu.Unlock()
	if cb != nil {
		cb(eventRes.Value())
	}

	ackPayload := EncodeAckPayload(AckPayload{
		AckedSequence:       msg.Sequence,
		OriginalTimestampMs: msg.TimestampMs,
	})
	c.mu.Lock()
	ackSeq := c.ackSeqOut
	c.ackSeqOut++
	sender := c.sender
	c.mu.Unlock()

	if sender == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "no connection bound")
	}

	ackMsg := EncodeControlMessage(ControlMessage{
		Type:        ControlInputAck,
		Sequence:    ackSeq,
		TimestampMs: msg.TimestampMs,
		Payload:     ackPayload,
	})
	return sender.SendControlAck(ackMsg, msg.TimestampMs)
}

// Stats returns a snapshot of cumulative channel counters.
func (c *ReliableInputChannel) Stats() ReliableInputChannelStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ReliableInputChannelStats{
		Sent:      c.sent,
		Acked:     c.acked,
		Retried:   c.retried,
		Abandoned: c.abandoned,
	}
}
