package transport

import (
	"sync"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// HandshakeState is a node in the three-way capability exchange.
type HandshakeState int

const (
	HandshakeIdle HandshakeState = iota
	HandshakeRequestSent
	HandshakeCompleted
	HandshakeFailed
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeIdle:
		return "idle"
	case HandshakeRequestSent:
		return "request_sent"
	case HandshakeCompleted:
		return "completed"
	case HandshakeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HandshakeManager drives the three-way capability exchange over a
// sender/receiver pair bound to an already-open Connection: explicit
// state progression with timeout and version-mismatch handling, carried
// in the RTP-shaped control envelope.
type HandshakeManager struct {
	mu        sync.Mutex
	state     HandshakeState
	sender    *RtpSender
	receiver  *RtpReceiver
	conn      Connection
	sessionID uint32
	localSSRC uint32

	remoteSSRC      uint32
	remoteSessionID uint32
}

// NewHandshakeManager creates a manager in HandshakeIdle.
func NewHandshakeManager(sender *RtpSender, receiver *RtpReceiver, conn Connection, localSSRC uint32) *HandshakeManager {
	return &HandshakeManager{
		state:     HandshakeIdle,
		sender:    sender,
		receiver:  receiver,
		conn:      conn,
		localSSRC: localSSRC,
	}
}

// State returns the current handshake state.
func (h *HandshakeManager) State() HandshakeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// RemoteSSRC returns the peer's SSRC once completed.
func (h *HandshakeManager) RemoteSSRC() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remoteSSRC
}

// Initiate sends a handshake control message carrying sessionID and
// transitions to HandshakeRequestSent. This is the controller/initiator
// path.
func (h *HandshakeManager) Initiate(sessionID uint32) errs.Void {
	h.mu.Lock()
	h.sessionID = sessionID
	h.mu.Unlock()

	payload := EncodeHandshakePayload(HandshakePayload{
		Version:   ProtocolVersion,
		SessionID: sessionID,
		SSRC:      h.localSSRC,
	})
	msg := EncodeControlMessage(ControlMessage{Type: ControlHandshake, Payload: payload})

	if res := h.sender.SendControl(msg, 0); res.IsErr() {
		h.setState(HandshakeFailed)
		return res
	}
	h.setState(HandshakeRequestSent)
	return errs.OkVoid()
}

// WaitForResponse reads one control message expecting a handshake-ack
// matching the initiated session id, storing the remote SSRC and
// transitioning to HandshakeCompleted on success.
func (h *HandshakeManager) WaitForResponse(timeoutMs int) errs.Void {
	pkt, res := h.readControlPacket(timeoutMs)
	if res.IsErr() {
		return res
	}

	parsed := DecodeControlMessage(pkt.Payload)
	if parsed.IsErr() {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindHandshakeFailed, parsed.Message())
	}
	msg := parsed.Value()
	if msg.Type != ControlHandshakeAck {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindHandshakeFailed, "expected handshake-ack")
	}

	payload := DecodeHandshakePayload(msg.Payload)
	if payload.IsErr() {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindHandshakeFailed, payload.Message())
	}
	hp := payload.Value()

	h.mu.Lock()
	expectedSession := h.sessionID
	h.mu.Unlock()

	if hp.Version != ProtocolVersion {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindUnsupportedVersion, "protocol version mismatch")
	}
	if hp.SessionID != expectedSession {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindHandshakeFailed, "session id mismatch")
	}

	h.mu.Lock()
	h.remoteSSRC = hp.SSRC
	h.remoteSessionID = hp.SessionID
	h.mu.Unlock()
	h.setState(HandshakeCompleted)
	return errs.OkVoid()
}

// WaitForRequest reads one control message expecting a handshake,
// records the remote SSRC and session id, sends a handshake-ack reply,
// and transitions to HandshakeCompleted. This is the controlled/
// responder path.
func (h *HandshakeManager) WaitForRequest(timeoutMs int) errs.Void {
	pkt, res := h.readControlPacket(timeoutMs)
	if res.IsErr() {
		return res
	}

	parsed := DecodeControlMessage(pkt.Payload)
	if parsed.IsErr() {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindHandshakeFailed, parsed.Message())
	}
	msg := parsed.Value()
	if msg.Type != ControlHandshake {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindHandshakeFailed, "expected handshake")
	}

	payload := DecodeHandshakePayload(msg.Payload)
	if payload.IsErr() {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindHandshakeFailed, payload.Message())
	}
	hp := payload.Value()
	if hp.Version != ProtocolVersion {
		h.setState(HandshakeFailed)
		return errs.ErrVoid(errs.KindUnsupportedVersion, "protocol version mismatch")
	}

	h.mu.Lock()
	h.remoteSSRC = hp.SSRC
	h.remoteSessionID = hp.SessionID
	h.sessionID = hp.SessionID
	h.mu.Unlock()

	ackPayload := EncodeHandshakePayload(HandshakePayload{
		Version:   ProtocolVersion,
		SessionID: hp.SessionID,
		SSRC:      h.localSSRC,
	})
	ackMsg := EncodeControlMessage(ControlMessage{Type: ControlHandshakeAck, Payload: ackPayload})
	if sendRes := h.sender.SendControl(ackMsg, 0); sendRes.IsErr() {
		h.setState(HandshakeFailed)
		return sendRes
	}

	h.setState(HandshakeCompleted)
	return errs.OkVoid()
}

func (h *HandshakeManager) readControlPacket(timeoutMs int) (RtpPacket, errs.Void) {
	res := h.receiver.Receive(h.conn, timeoutMs)
	if res.IsErr() {
		if res.Code() == errs.KindTimeout {
			return RtpPacket{}, errs.ErrVoid(errs.KindHandshakeTimeout, "handshake timed out")
		}
		h.setState(HandshakeFailed)
		return RtpPacket{}, errs.ErrVoid(errs.KindHandshakeFailed, res.Message())
	}
	pkt := res.Value()
	if pkt.Header.PayloadType != PayloadControl && pkt.Header.PayloadType != PayloadControlAck {
		h.setState(HandshakeFailed)
		return RtpPacket{}, errs.ErrVoid(errs.KindHandshakeFailed, "non-control packet during handshake")
	}
	return pkt, errs.OkVoid()
}

func (h *HandshakeManager) setState(s HandshakeState) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"function": "HandshakeManager",
		"state":    s.String(),
	}).Info("handshake state transition")
}
