package transport

import (
	"sync"
	"sync/atomic"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// maxDetectedGap caps how many sequence numbers detectMissingSequences
// will enumerate in one gap, guarding against pathological sequence
// resets producing an unbounded loss report.
const maxDetectedGap = 100

// detectMissingSequences returns the 16-bit sequence numbers strictly
// between expected and actual (wrap-aware), capped at maxDetectedGap
// entries. If actual == expected or actual is "before" expected modulo
// wraparound, no gap is reported.
func detectMissingSequences(expected, actual uint16) []uint16 {
	gap := actual - expected // wraps naturally as uint16 arithmetic
	if gap == 0 || gap > 0x8000 {
		return nil
	}
	n := int(gap)
	if n > maxDetectedGap {
		n = maxDetectedGap
	}
	missing := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		missing = append(missing, expected+uint16(i))
	}
	return missing
}

// ReceiverStats is a snapshot of an RtpReceiver's cumulative counters.
type ReceiverStats struct {
	PacketsReceived uint64
	BytesReceived   uint64
	PacketsLost     uint64
}

// RtpReceiver is a pure parser and loss detector: it reads one datagram
// at a time from a Connection, parses it as an RTP-shaped packet, and
// tracks expected-vs-actual sequence per payload type to maintain a
// lost-packet counter. It holds no jitter buffer or dispatch logic of
// its own; the caller dispatches the returned packet by payload type.
type RtpReceiver struct {
	mu       sync.Mutex
	expected map[PayloadType]uint16
	seen     map[PayloadType]bool

	packetsReceived atomic.Uint64
	bytesReceived   atomic.Uint64
	packetsLost     atomic.Uint64
}

// NewRtpReceiver creates an empty receiver.
func NewRtpReceiver() *RtpReceiver {
	return &RtpReceiver{
		expected: make(map[PayloadType]uint16),
		seen:     make(map[PayloadType]bool),
	}
}

// Receive reads one datagram from conn, parses it, and updates loss
// tracking. On Connection.Recv timeout it returns a KindTimeout error
// without logging (idle connections are expected); other recv errors
// are logged and returned as errors so the outer receive loop can retry
// or treat the connection as failed.
func (r *RtpReceiver) Receive(conn Connection, timeoutMs int) errs.Result[RtpPacket] {
	buf := make([]byte, 65536)
	recvRes := conn.Recv(buf, timeoutMs)
	if recvRes.IsErr() {
		if recvRes.Code() != errs.KindTimeout {
			logrus.WithFields(logrus.Fields{
				"function": "RtpReceiver.Receive",
				"error":    recvRes.Message(),
			}).Warn("connection receive failed")
		}
		return errs.Err[RtpPacket](recvRes.Code(), recvRes.Message())
	}

	parsed := ParseRtpPacket(recvRes.Value())
	if parsed.IsErr() {
		logrus.WithFields(logrus.Fields{
			"function": "RtpReceiver.Receive",
			"error":    parsed.Message(),
		}).Warn("dropped malformed RTP packet")
		return parsed
	}

	pkt := parsed.Value()
	r.trackSequence(pkt.Header.PayloadType, pkt.Header.SequenceNumber)

	r.packetsReceived.Add(1)
	r.bytesReceived.Add(uint64(len(pkt.Payload) + 12))
	return errs.Ok(pkt)
}

func (r *RtpReceiver) trackSequence(pt PayloadType, actual uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seen[pt] {
		r.seen[pt] = true
		r.expected[pt] = actual + 1
		return
	}

	expected := r.expected[pt]
	missing := detectMissingSequences(expected, actual)
	if len(missing) > 0 {
		r.packetsLost.Add(uint64(len(missing)))
		logrus.WithFields(logrus.Fields{
			"function":     "RtpReceiver.trackSequence",
			"payload_type": pt,
			"missing":      len(missing),
		}).Debug("detected missing RTP sequence numbers")
	}
	r.expected[pt] = actual + 1
}

// Stats returns a snapshot of cumulative receive counters.
func (r *RtpReceiver) Stats() ReceiverStats {
	return ReceiverStats{
		PacketsReceived: r.packetsReceived.Load(),
		BytesReceived:   r.bytesReceived.Load(),
		PacketsLost:     r.packetsLost.Load(),
	}
}
