package rtc

import (
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/transport"
	"github.com/sirupsen/logrus"
)

// DataChannelState follows a forward-only lifecycle: no reopen.
type DataChannelState int

const (
	ChannelConnecting DataChannelState = iota
	ChannelOpen
	ChannelClosing
	ChannelClosed
)

func (s DataChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosing:
		return "closing"
	case ChannelClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DataChannelConfig carries a DataChannel's delivery policy: whether
// delivery order matters, a
// retransmit ceiling, and a message lifetime.
type DataChannelConfig struct {
	Ordered             bool
	MaxRetransmits      int
	MaxPacketLifeTimeMs uint32
}

// DefaultDataChannelConfig uses ReliableInputChannel's retry ceiling
// (transport.MaxRetries) with a 5000ms message lifetime, which spaces
// retries 5000/(MaxRetries+1) = 1250ms apart, for channels that don't
// override it.
func DefaultDataChannelConfig() DataChannelConfig {
	return DataChannelConfig{Ordered: true, MaxRetransmits: transport.MaxRetries, MaxPacketLifeTimeMs: 5000}
}

// MessageCallback is invoked on the receiver side for each complete
// inbound message. Message fragmentation is out of scope (see the
// module's design notes on this as an extension point).
type MessageCallback func([]byte)

type pendingMessage struct {
	data       []byte
	sequence   uint16
	sentAt     time.Time
	retryCount int
}

// DataChannel is a labelled, optionally-ordered message stream. It
// wraps the same sequence/ack/retry shape as transport.
// ReliableInputChannel, generalized from a fixed InputEvent payload to
// an arbitrary byte message, with its retry ceiling and retry interval
// derived from DataChannelConfig instead of the fixed policy constants
// a control-plane-only channel uses.
type DataChannel struct {
	mu        sync.Mutex
	label     string
	config    DataChannelConfig
	state     DataChannelState
	sender    *transport.RtpSender
	nextSeq   uint16
	ackSeqOut uint16
	pending   []pendingMessage
	onMessage MessageCallback

	sent      uint64
	acked     uint64
	abandoned uint64
}

// NewDataChannel creates a channel in ChannelConnecting.
func NewDataChannel(label string, config DataChannelConfig) *DataChannel {
	return &DataChannel{label: label, config: config, state: ChannelConnecting}
}

// Label returns the channel's label.
func (c *DataChannel) Label() string { return c.label }

// State returns the current lifecycle state.
func (c *DataChannel) State() DataChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState enforces forward-only transitions; a backward request is a
// no-op, logged at debug since it generally indicates a duplicate
// teardown rather than a bug.
func (c *DataChannel) setState(target DataChannelState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target < c.state {
		logrus.WithFields(logrus.Fields{
			"function": "DataChannel.setState",
			"label":    c.label,
			"from":     c.state.String(),
			"to":       target.String(),
		}).Debug("ignored backward data channel transition")
		return
	}
	c.state = target
}

// Open transitions the channel to ChannelOpen once its sender is bound.
func (c *DataChannel) Open(conn transport.Connection, ssrc uint32) {
	c.mu.Lock()
	c.sender = transport.NewRtpSender(ssrc, conn)
	c.mu.Unlock()
	c.setState(ChannelOpen)
}

// Close transitions the channel through Closing to Closed and detaches
// its sender.
func (c *DataChannel) Close() {
	c.setState(ChannelClosing)
	c.mu.Lock()
	c.sender = nil
	c.mu.Unlock()
	c.setState(ChannelClosed)
}

// Send wraps data in a control-message envelope and writes it via the
// bound sender. Returns InvalidOperation if the channel is not open,
// NotInitialized if no connection is bound.
func (c *DataChannel) Send(data []byte) errs.Void {
	c.mu.Lock()
	if c.state != ChannelOpen {
		c.mu.Unlock()
		return errs.ErrVoid(errs.KindInvalidOperation, "data channel is not open")
	}
	if c.sender == nil {
		c.mu.Unlock()
		return errs.ErrVoid(errs.KindNotInitialized, "data channel has no bound connection")
	}
	seq := c.nextSeq
	c.nextSeq++
	sender := c.sender
	c.mu.Unlock()

	nowMs := uint32(time.Now().UnixMilli())
	msg := transport.EncodeControlMessage(transport.ControlMessage{
		Type:        transport.ControlInputEvent,
		Sequence:    seq,
		TimestampMs: nowMs,
		Payload:     data,
	})
	if res := sender.SendControl(msg, nowMs); res.IsErr() {
		return res
	}

	c.mu.Lock()
	c.pending = append(c.pending, pendingMessage{data: data, sequence: seq, sentAt: time.Now()})
	c.sent++
	c.mu.Unlock()
	return errs.OkVoid()
}

// OnMessage registers the callback fired for each complete inbound
// message.
func (c *DataChannel) OnMessage(cb MessageCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = cb
}

// OnAck drops every pending message whose sequence is <= ackedSequence.
func (c *DataChannel) OnAck(ackedSequence uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.pending[:0]
	ackedCount := 0
	for _, p := range c.pending {
		if ackedSequence-p.sequence < 0x8000 {
			ackedCount++
			continue
		}
		kept = append(kept, p)
	}
	c.pending = kept
	c.acked += uint64(ackedCount)
}

// ProcessRetries resends pending messages older than the retry interval,
// MaxPacketLifeTimeMs split evenly over MaxRetransmits+1 attempts
// (transport.RetryTimeout when that comes to zero), capped at
// MaxRetransmits resends; beyond that the message is abandoned.
func (c *DataChannel) ProcessRetries() {
	c.mu.Lock()
	retryInterval := time.Duration(c.config.MaxPacketLifeTimeMs) * time.Millisecond / time.Duration(c.config.MaxRetransmits+1)
	if retryInterval <= 0 {
		retryInterval = transport.RetryTimeout
	}
	now := time.Now()
	var toResend []pendingMessage
	kept := c.pending[:0]
	for _, p := range c.pending {
		if now.Sub(p.sentAt) < retryInterval {
			kept = append(kept, p)
			continue
		}
		if p.retryCount >= c.config.MaxRetransmits {
			c.abandoned++
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

	if sender == nil {
		return
	}
	for _, p := range toResend {
		nowMs := uint32(time.Now().UnixMilli())
		msg := transport.EncodeControlMessage(transport.ControlMessage{
			Type:        transport.ControlInputEvent,
			Sequence:    p.sequence,
			TimestampMs: nowMs,
			Payload:     p.data,
		})
		sender.SendControl(msg, nowMs)
	}
}

// OnControlMessage handles an inbound control envelope carrying a data
// channel message: delivers it to the registered callback and replies
// with an ack.
func (c *DataChannel) OnControlMessage(msg transport.ControlMessage) errs.Void {
	if msg.Type != transport.ControlInputEvent {
		return errs.OkVoid()
	}

	c.mu.Lock()
	cb := c.onMessage
	sender := c.sender
	ackSeq := c.ackSeqOut
	c.ackSeqOut++
	c.mu.Unlock()

	if cb != nil {
		cb(msg.Payload)
	}
	if sender == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "data channel has no bound connection")
	}

	ackPayload := transport.EncodeAckPayload(transport.AckPayload{
		AckedSequence:       msg.Sequence,
		OriginalTimestampMs: msg.TimestampMs,
	})
	ackMsg := transport.EncodeControlMessage(transport.ControlMessage{
		Type:        transport.ControlInputAck,
		Sequence:    ackSeq,
		TimestampMs: msg.TimestampMs,
		Payload:     ackPayload,
	})
	return sender.SendControlAck(ackMsg, msg.TimestampMs)
}
