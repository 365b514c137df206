package transport

import (
	"encoding/binary"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/pion/rtp"
)

// PayloadType identifies the kind of data an RTP-shaped packet carries.
type PayloadType uint8

const (
	PayloadVideo      PayloadType = 96
	PayloadAudio      PayloadType = 97
	PayloadControl    PayloadType = 98
	PayloadControlAck PayloadType = 99
)

// ProtocolVersion is the compile-time handshake version. A mismatch is a
// fatal handshake failure.
const ProtocolVersion uint32 = 1

// RtpHeader is the fixed twelve-byte header this module puts on the wire:
// version 2, no padding/extension, zero CSRCs, a one-bit marker, and the
// payload-type/sequence/timestamp/SSRC fields. Marshal/Unmarshal go
// through pion/rtp's wire-compatible Header rather than hand-rolled bit
// twiddling.
type RtpHeader struct {
	Marker         bool
	PayloadType    PayloadType
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

func (h RtpHeader) toPion() rtp.Header {
	return rtp.Header{
		Version:        2,
		Padding:        false,
		Extension:      false,
		Marker:         h.Marker,
		PayloadType:    uint8(h.PayloadType),
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		SSRC:           h.SSRC,
	}
}

func rtpHeaderFromPion(h rtp.Header) RtpHeader {
	return RtpHeader{
		Marker:         h.Marker,
		PayloadType:    PayloadType(h.PayloadType),
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		SSRC:           h.SSRC,
	}
}

// RtpPacket is a parsed or to-be-serialized RTP-shaped datagram. ArrivalTime
// is populated by ParseRtpPacket from the steady clock; it is the zero
// value on packets built for sending.
type RtpPacket struct {
	Header      RtpHeader
	Payload     []byte
	ArrivalTime time.Time
}

// EncodeRtpHeader serializes header alone into a 12-byte buffer.
func EncodeRtpHeader(h RtpHeader) errs.Result[[]byte] {
	p := rtp.Packet{Header: h.toPion()}
	buf, err := p.Header.Marshal()
	if err != nil {
		return errs.Err[[]byte](errs.KindRTPHeaderInvalid, err.Error())
	}
	return errs.Ok(buf)
}

// DecodeRtpHeader parses the leading 12 bytes of data as an RTP header.
func DecodeRtpHeader(data []byte) errs.Result[RtpHeader] {
	if len(data) < 12 {
		return errs.Err[RtpHeader](errs.KindRTPHeaderInvalid, "buffer shorter than 12 bytes")
	}
	var h rtp.Header
	if _, err := h.Unmarshal(data); err != nil {
		return errs.Err[RtpHeader](errs.KindRTPHeaderInvalid, err.Error())
	}
	return errs.Ok(rtpHeaderFromPion(h))
}

// EncodeRtpPacket serializes header and payload into one buffer.
func EncodeRtpPacket(pkt RtpPacket) errs.Result[[]byte] {
	p := rtp.Packet{Header: pkt.Header.toPion(), Payload: pkt.Payload}
	buf, err := p.Marshal()
	if err != nil {
		return errs.Err[[]byte](errs.KindRTPHeaderInvalid, err.Error())
	}
	return errs.Ok(buf)
}

// ParseRtpPacket parses a full RTP-shaped datagram, stamping ArrivalTime
// from the steady clock.
func ParseRtpPacket(data []byte) errs.Result[RtpPacket] {
	if len(data) < 12 {
		return errs.Err[RtpPacket](errs.KindRTPHeaderInvalid, "buffer shorter than 12 bytes")
	}
	var p rtp.Packet
	if err := p.Unmarshal(data); err != nil {
		return errs.Err[RtpPacket](errs.KindRTPHeaderInvalid, err.Error())
	}
	payload := make([]byte, len(p.Payload))
	copy(payload, p.Payload)
	return errs.Ok(RtpPacket{
		Header:      rtpHeaderFromPion(p.Header),
		Payload:     payload,
		ArrivalTime: time.Now(),
	})
}

// ControlMessageType enumerates the control envelope's type byte.
type ControlMessageType uint8

const (
	ControlHandshake    ControlMessageType = 0x01
	ControlHandshakeAck ControlMessageType = 0x02
	ControlInputEvent   ControlMessageType = 0x10
	ControlInputAck     ControlMessageType = 0x11
	ControlHeartbeat    ControlMessageType = 0x20
)

// controlMessageHeaderSize is the type(1) + sequence(2) + timestamp(4)
// envelope size, before the variable-length payload.
const controlMessageHeaderSize = 7

// ControlMessage is the envelope carried inside RTP packets whose payload
// type is PayloadControl or PayloadControlAck.
type ControlMessage struct {
	Type        ControlMessageType
	Sequence    uint16
	TimestampMs uint32
	Payload     []byte
}

// EncodeControlMessage serializes the envelope: type (1 byte), sequence
// (2 bytes LE), timestamp_ms (4 bytes LE), payload.
func EncodeControlMessage(m ControlMessage) []byte {
	buf := make([]byte, controlMessageHeaderSize+len(m.Payload))
	buf[0] = byte(m.Type)
	binary.LittleEndian.PutUint16(buf[1:3], m.Sequence)
	binary.LittleEndian.PutUint32(buf[3:7], m.TimestampMs)
	copy(buf[7:], m.Payload)
	return buf
}

// DecodeControlMessage parses a control envelope, requiring at least 7
// bytes.
func DecodeControlMessage(data []byte) errs.Result[ControlMessage] {
	if len(data) < controlMessageHeaderSize {
		return errs.Err[ControlMessage](errs.KindProtocolError, "control message shorter than 7 bytes")
	}
	payload := make([]byte, len(data)-controlMessageHeaderSize)
	copy(payload, data[controlMessageHeaderSize:])
	return errs.Ok(ControlMessage{
		Type:        ControlMessageType(data[0]),
		Sequence:    binary.LittleEndian.Uint16(data[1:3]),
		TimestampMs: binary.LittleEndian.Uint32(data[3:7]),
		Payload:     payload,
	})
}

// HandshakePayload is the inner payload of a handshake/handshake-ack
// control message. Fixed 14 bytes on the wire: version, session id and
// SSRC as 32-bit fields, then a codec bitmask and capability flags of
// one byte each.
type HandshakePayload struct {
	Version         uint32
	SessionID       uint32
	SSRC            uint32
	CodecMask       uint8
	CapabilityFlags uint8
}

const handshakePayloadSize = 14

// EncodeHandshakePayload serializes the payload, little-endian.
func EncodeHandshakePayload(p HandshakePayload) []byte {
	buf := make([]byte, handshakePayloadSize)
	binary.LittleEndian.PutUint32(buf[0:4], p.Version)
	binary.LittleEndian.PutUint32(buf[4:8], p.SessionID)
	binary.LittleEndian.PutUint32(buf[8:12], p.SSRC)
	buf[12] = p.CodecMask
	buf[13] = p.CapabilityFlags
	return buf
}

// DecodeHandshakePayload parses a handshake payload.
func DecodeHandshakePayload(data []byte) errs.Result[HandshakePayload] {
	if len(data) < handshakePayloadSize {
		return errs.Err[HandshakePayload](errs.KindProtocolError, "handshake payload shorter than 14 bytes")
	}
	return errs.Ok(HandshakePayload{
		Version:         binary.LittleEndian.Uint32(data[0:4]),
		SessionID:       binary.LittleEndian.Uint32(data[4:8]),
		SSRC:            binary.LittleEndian.Uint32(data[8:12]),
		CodecMask:       data[12],
		CapabilityFlags: data[13],
	})
}

// InputEventType enumerates the kinds of input events relayed over a
// data channel.
type InputEventType uint8

const (
	InputMouseMove  InputEventType = 1
	InputMouseClick InputEventType = 2
	InputMouseWheel InputEventType = 3
	InputKeyDown    InputEventType = 4
	InputKeyUp      InputEventType = 5
	InputTouch      InputEventType = 6
)

// InputEvent is the 17-byte wire payload for a single input event.
type InputEvent struct {
	Type      InputEventType
	X         uint16
	Y         uint16
	Button    uint8
	State     uint8
	Wheel     int16
	KeyCode   uint32
	Modifiers uint32
}

const inputEventSize = 17

// EncodeInputEvent serializes an InputEvent, little-endian.
func EncodeInputEvent(e InputEvent) []byte {
	buf := make([]byte, inputEventSize)
	buf[0] = byte(e.Type)
	binary.LittleEndian.PutUint16(buf[1:3], e.X)
	binary.LittleEndian.PutUint16(buf[3:5], e.Y)
	buf[5] = e.Button
	buf[6] = e.State
	binary.LittleEndian.PutUint16(buf[7:9], uint16(e.Wheel))
	binary.LittleEndian.PutUint32(buf[9:13], e.KeyCode)
	binary.LittleEndian.PutUint32(buf[13:17], e.Modifiers)
	return buf
}

// DecodeInputEvent parses a 17-byte input event payload.
func DecodeInputEvent(data []byte) errs.Result[InputEvent] {
	if len(data) < inputEventSize {
		return errs.Err[InputEvent](errs.KindProtocolError, "input event shorter than 17 bytes")
	}
	return errs.Ok(InputEvent{
		Type:      InputEventType(data[0]),
		X:         binary.LittleEndian.Uint16(data[1:3]),
		Y:         binary.LittleEndian.Uint16(data[3:5]),
		Button:    data[5],
		State:     data[6],
		Wheel:     int16(binary.LittleEndian.Uint16(data[7:9])),
		KeyCode:   binary.LittleEndian.Uint32(data[9:13]),
		Modifiers: binary.LittleEndian.Uint32(data[13:17]),
	})
}

// AckPayload is the 6-byte payload of an input-ack control message.
type AckPayload struct {
	AckedSequence       uint16
	OriginalTimestampMs uint32
}

const ackPayloadSize = 6

// EncodeAckPayload serializes an AckPayload, little-endian.
func EncodeAckPayload(p AckPayload) []byte {
	buf := make([]byte, ackPayloadSize)
	binary.LittleEndian.PutUint16(buf[0:2], p.AckedSequence)
	binary.LittleEndian.PutUint32(buf[2:6], p.OriginalTimestampMs)
	return buf
}

// DecodeAckPayload parses a 6-byte ack payload.
func DecodeAckPayload(data []byte) errs.Result[AckPayload] {
	if len(data) < ackPayloadSize {
		return errs.Err[AckPayload](errs.KindProtocolError, "ack payload shorter than 6 bytes")
	}
	return errs.Ok(AckPayload{
		AckedSequence:       binary.LittleEndian.Uint16(data[0:2]),
		OriginalTimestampMs: binary.LittleEndian.Uint32(data[2:6]),
	})
}
