package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRtpHeaderRoundTrip(t *testing.T) {
	h := RtpHeader{
		Marker:         true,
		PayloadType:    PayloadVideo,
		SequenceNumber: 42,
		Timestamp:      123456,
		SSRC:           998877,
	}
	res := EncodeRtpHeader(h)
	require.True(t, res.IsOk())
	assert.Len(t, res.Value(), 12)

	parsed := DecodeRtpHeader(res.Value())
	require.True(t, parsed.IsOk())
	assert.Equal(t, h, parsed.Value())
}

func TestDecodeRtpHeaderRejectsShortBuffer(t *testing.T) {
	res := DecodeRtpHeader(make([]byte, 11))
	assert.False(t, res.IsOk())
	assert.Equal(t, 2, res.Code().Band())
}

func TestRtpPacketRoundTrip(t *testing.T) {
	pkt := RtpPacket{
		Header: RtpHeader{
			PayloadType:    PayloadAudio,
			SequenceNumber: 7,
			Timestamp:      48000,
			SSRC:           55,
		},
		Payload: []byte("opus-frame-bytes"),
	}
	res := EncodeRtpPacket(pkt)
	require.True(t, res.IsOk())

	parsed := ParseRtpPacket(res.Value())
	require.True(t, parsed.IsOk())
	got := parsed.Value()
	assert.Equal(t, pkt.Header, got.Header)
	assert.Equal(t, pkt.Payload, got.Payload)
	assert.False(t, got.ArrivalTime.IsZero())
}

func TestParseRtpPacketRejectsShortBuffer(t *testing.T) {
	res := ParseRtpPacket(make([]byte, 5))
	assert.False(t, res.IsOk())
}

func TestControlMessageRoundTrip(t *testing.T) {
	m := ControlMessage{
		Type:        ControlInputEvent,
		Sequence:    99,
		TimestampMs: 1_000_000,
		Payload:     []byte{1, 2, 3, 4},
	}
	buf := EncodeControlMessage(m)
	assert.Len(t, buf, 7+4)

	res := DecodeControlMessage(buf)
	require.True(t, res.IsOk())
	assert.Equal(t, m, res.Value())
}

func TestDecodeControlMessageRejectsShortBuffer(t *testing.T) {
	res := DecodeControlMessage(make([]byte, 6))
	assert.False(t, res.IsOk())
}

func TestHandshakePayloadRoundTrip(t *testing.T) {
	p := HandshakePayload{
		Version:         ProtocolVersion,
		SessionID:       0xdeadbeef,
		SSRC:            12345,
		CodecMask:       0b0011,
		CapabilityFlags: 0xAB,
	}
	buf := EncodeHandshakePayload(p)
	assert.Len(t, buf, 14)

	res := DecodeHandshakePayload(buf)
	require.True(t, res.IsOk())
	assert.Equal(t, p, res.Value())
}

func TestInputEventRoundTrip(t *testing.T) {
	e := InputEvent{
		Type:      InputMouseWheel,
		X:         1920,
		Y:         1080,
		Button:    0,
		State:     1,
		Wheel:     -120,
		KeyCode:   0,
		Modifiers: 0x0001,
	}
	buf := EncodeInputEvent(e)
	assert.Len(t, buf, 17)

	res := DecodeInputEvent(buf)
	require.True(t, res.IsOk())
	assert.Equal(t, e, res.Value())
}

func TestAckPayloadRoundTrip(t *testing.T) {
	a := AckPayload{AckedSequence: 321, OriginalTimestampMs: 4242}
	buf := EncodeAckPayload(a)
	assert.Len(t, buf, 6)

	res := DecodeAckPayload(buf)
	require.True(t, res.IsOk())
	assert.Equal(t, a, res.Value())
}

func TestControlMessageTypeWireValues(t *testing.T) {
	assert.Equal(t, byte(0x01), byte(ControlHandshake))
	assert.Equal(t, byte(0x02), byte(ControlHandshakeAck))
	assert.Equal(t, byte(0x10), byte(ControlInputEvent))
	assert.Equal(t, byte(0x11), byte(ControlInputAck))
	assert.Equal(t, byte(0x20), byte(ControlHeartbeat))

	buf := EncodeControlMessage(ControlMessage{Type: ControlInputEvent})
	assert.Equal(t, byte(0x10), buf[0])
}
