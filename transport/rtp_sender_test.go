package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoopbackConnPair(t *testing.T) (*DirectConnection, *DirectConnection) {
	t.Helper()
	a := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, a.Open().IsOk())
	t.Cleanup(func() { a.Close() })

	b := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, b.Open().IsOk())
	t.Cleanup(func() { b.Close() })

	a.peer = b.socket.LocalAddr()
	b.peer = a.socket.LocalAddr()
	return a, b
}

func TestRtpSenderSendVideoFrameIncrementsSequence(t *testing.T) {
	a, b := newLoopbackConnPair(t)
	sender := NewRtpSender(1234, a)

	require.True(t, sender.SendVideoFrame([]byte("frame-1"), 90000, true).IsOk())
	require.True(t, sender.SendVideoFrame([]byte("frame-2"), 93000, true).IsOk())

	stats := sender.Stats()
	assert.Equal(t, uint64(2), stats.PacketsSent)
	assert.Equal(t, uint16(2), stats.LastVideoSequence)

	buf := make([]byte, 1500)
	res := b.Recv(buf, 1000)
	require.True(t, res.IsOk())
	parsed := ParseRtpPacket(res.Value())
	require.True(t, parsed.IsOk())
	assert.Equal(t, PayloadVideo, parsed.Value().Header.PayloadType)
	assert.Equal(t, uint16(0), parsed.Value().Header.SequenceNumber)
}

func TestRtpSenderSeparatesStreamCounters(t *testing.T) {
	a, _ := newLoopbackConnPair(t)
	sender := NewRtpSender(1, a)

	require.True(t, sender.SendAudioPacket([]byte("a0"), 0).IsOk())
	require.True(t, sender.SendControl([]byte("c0"), 0).IsOk())
	require.True(t, sender.SendAudioPacket([]byte("a1"), 960).IsOk())

	stats := sender.Stats()
	assert.Equal(t, uint16(2), stats.LastAudioSequence)
	assert.Equal(t, uint16(1), stats.LastControlSequence)
	assert.Equal(t, uint16(0), stats.LastVideoSequence)
}

func TestRtpReceiverTracksLossAcrossGap(t *testing.T) {
	a, b := newLoopbackConnPair(t)
	sender := NewRtpSender(1, a)
	receiver := NewRtpReceiver()

	require.True(t, sender.SendVideoFrame([]byte("f0"), 0, true).IsOk())
	res := receiver.Receive(b, 1000)
	require.True(t, res.IsOk())
	assert.Equal(t, uint64(0), receiver.Stats().PacketsLost)

	// Skip sequence 1 and 2 by sending raw packets with sequence 3.
	require.True(t, sender.SendRaw(RtpPacket{
		Header: RtpHeader{PayloadType: PayloadVideo, SequenceNumber: 3, SSRC: 1},
		Payload: []byte("f3"),
	}).IsOk())

	res = receiver.Receive(b, 1000)
	require.True(t, res.IsOk())
	assert.Equal(t, uint64(2), receiver.Stats().PacketsLost)
}

func TestRtpReceiverReturnsTimeoutOnIdleConnection(t *testing.T) {
	_, b := newLoopbackConnPair(t)
	receiver := NewRtpReceiver()

	res := receiver.Receive(b, 30)
	assert.False(t, res.IsOk())
}
