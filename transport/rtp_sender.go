package transport

import (
	"sync"
	"sync/atomic"

	"github.com/go-deskstream/deskstream/errs"
)

// SenderStats is a snapshot of an RtpSender's cumulative counters.
type SenderStats struct {
	PacketsSent         uint64
	BytesSent           uint64
	PacedDropped        uint64
	LastVideoSequence   uint16
	LastAudioSequence   uint16
	LastControlSequence uint16
}

// RtpSender frames outgoing payloads into RTP-shaped packets and writes
// them to a Connection. It holds three independent per-stream sequence
// counters (video, audio, control), one per stream multiplexed over the
// connection.
type RtpSender struct {
	mu         sync.Mutex
	ssrc       uint32
	videoSeq   uint16
	audioSeq   uint16
	controlSeq uint16
	conn       Connection
	pacer      *Pacer

	packetsSent  atomic.Uint64
	bytesSent    atomic.Uint64
	pacedDropped atomic.Uint64
}

// NewRtpSender creates a sender with the given local SSRC writing to conn.
func NewRtpSender(ssrc uint32, conn Connection) *RtpSender {
	return &RtpSender{ssrc: ssrc, conn: conn}
}

// SetPacer attaches a token-bucket send-rate shaper to the media streams
// (video and audio). A nil pacer disables shaping, which is the default.
// Control and control-ack traffic bypasses the pacer: handshake and input
// events are latency-sensitive and low-volume enough that shaping them
// would only add delay without protecting bandwidth.
func (s *RtpSender) SetPacer(p *Pacer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pacer = p
}

func (s *RtpSender) buildAndSend(pt PayloadType, seq uint16, ts uint32, marker bool, payload []byte) errs.Void {
	pkt := RtpPacket{
		Header: RtpHeader{
			Marker:         marker,
			PayloadType:    pt,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}
	return s.SendRaw(pkt)
}

// buildAndSendPaced is buildAndSend with the pacer consulted first. When a
// pacer is attached and currently refusing sends, the packet is dropped
// (not queued; the pacer has no back-pressure buffer of its own) and
// KindResourceExhausted is returned so the caller can
// decide whether to retry on the next frame or drop silently.
func (s *RtpSender) buildAndSendPaced(pt PayloadType, seq uint16, ts uint32, marker bool, payload []byte) errs.Void {
	s.mu.Lock()
	pacer := s.pacer
	s.mu.Unlock()

	if pacer != nil && !pacer.CanSend() {
		s.pacedDropped.Add(1)
		return errs.ErrVoid(errs.KindResourceExhausted, "pacer rejected send for this interval")
	}

	res := s.buildAndSend(pt, seq, ts, marker, payload)
	if pacer != nil && res.IsOk() {
		pacer.OnPacketSent()
	}
	return res
}

// SendVideoFrame sends one video payload at the 90kHz clock, advancing
// the video sequence counter.
func (s *RtpSender) SendVideoFrame(payload []byte, ts90k uint32, markerFlag bool) errs.Void {
	s.mu.Lock()
	seq := s.videoSeq
	s.videoSeq++
	s.mu.Unlock()
	return s.buildAndSendPaced(PayloadVideo, seq, ts90k, markerFlag, payload)
}

// SendAudioPacket sends one audio payload at the 48kHz clock, advancing
// the audio sequence counter.
func (s *RtpSender) SendAudioPacket(payload []byte, ts48k uint32) errs.Void {
	s.mu.Lock()
	seq := s.audioSeq
	s.audioSeq++
	s.mu.Unlock()
	return s.buildAndSendPaced(PayloadAudio, seq, ts48k, false, payload)
}

// SendControl sends one control envelope with RTP payload-type control,
// advancing the control sequence counter.
func (s *RtpSender) SendControl(payload []byte, tsMs uint32) errs.Void {
	s.mu.Lock()
	seq := s.controlSeq
	s.controlSeq++
	s.mu.Unlock()
	return s.buildAndSend(PayloadControl, seq, tsMs, false, payload)
}

// SendControlAck sends one control envelope with RTP payload-type
// control-ack, advancing the same control sequence counter as
// SendControl (acks and control messages share the outer transport
// stream; only the inner envelope type distinguishes them).
func (s *RtpSender) SendControlAck(payload []byte, tsMs uint32) errs.Void {
	s.mu.Lock()
	seq := s.controlSeq
	s.controlSeq++
	s.mu.Unlock()
	return s.buildAndSend(PayloadControlAck, seq, tsMs, false, payload)
}

// SendRaw serializes and writes a fully-built packet, bypassing the
// per-stream sequence counters: the packet's header is sent as given.
// buildAndSend uses it once it has assigned a sequence number.
func (s *RtpSender) SendRaw(pkt RtpPacket) errs.Void {
	res := EncodeRtpPacket(pkt)
	if res.IsErr() {
		return errs.ErrVoid(res.Code(), res.Message())
	}
	buf := res.Value()

	sendRes := s.conn.Send(buf)
	if sendRes.IsErr() {
		return sendRes
	}

	s.packetsSent.Add(1)
	s.bytesSent.Add(uint64(len(buf)))
	return errs.OkVoid()
}

// Stats returns a snapshot of cumulative send counters.
func (s *RtpSender) Stats() SenderStats {
	s.mu.Lock()
	lastVideo, lastAudio, lastControl := s.videoSeq, s.audioSeq, s.controlSeq
	s.mu.Unlock()
	return SenderStats{
		PacketsSent:         s.packetsSent.Load(),
		BytesSent:           s.bytesSent.Load(),
		PacedDropped:        s.pacedDropped.Load(),
		LastVideoSequence:   lastVideo,
		LastAudioSequence:   lastAudio,
		LastControlSequence: lastControl,
	}
}

// SSRC returns the local synchronization source identifier.
func (s *RtpSender) SSRC() uint32 { return s.ssrc }
