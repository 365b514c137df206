package rtc

import (
	"testing"

	"github.com/go-deskstream/deskstream/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaTrackSendFrameRequiresConnection(t *testing.T) {
	track := NewVideoTrack("v1", 42, NewVideoParams(2_000_000, 30))
	res := track.SendFrame([]byte{1, 2, 3}, 90, true)
	assert.False(t, res.IsOk())
}

func TestMediaTrackSendFrameRequiresEnabled(t *testing.T) {
	connA, _ := newLoopbackConnPair(t)
	track := NewVideoTrack("v1", 42, NewVideoParams(2_000_000, 30))
	track.SetConnection(connA)
	track.SetEnabled(false)

	res := track.SendFrame([]byte{1, 2, 3}, 90, true)
	assert.False(t, res.IsOk())
}

func TestMediaTrackSendVideoFrameDispatchesByKind(t *testing.T) {
	connA, connB := newLoopbackConnPair(t)
	track := NewVideoTrack("v1", 42, NewVideoParams(2_000_000, 30))
	track.SetConnection(connA)

	require.True(t, track.SendFrame([]byte{9, 9}, 90, true).IsOk())

	buf := make([]byte, 1500)
	res := connB.Recv(buf, 1000)
	require.True(t, res.IsOk())
	parsed := transport.ParseRtpPacket(res.Value())
	require.True(t, parsed.IsOk())
	assert.Equal(t, transport.PayloadVideo, parsed.Value().Header.PayloadType)
}

func TestMediaTrackSendAudioPacketDispatchesByKind(t *testing.T) {
	connA, connB := newLoopbackConnPair(t)
	track := NewAudioTrack("a1", 43, NewAudioParams(48000, 2))
	track.SetConnection(connA)

	require.True(t, track.SendFrame([]byte{1}, 480, false).IsOk())

	buf := make([]byte, 1500)
	res := connB.Recv(buf, 1000)
	require.True(t, res.IsOk())
	parsed := transport.ParseRtpPacket(res.Value())
	require.True(t, parsed.IsOk())
	assert.Equal(t, transport.PayloadAudio, parsed.Value().Header.PayloadType)
}

func TestMediaTrackDetachClearsSender(t *testing.T) {
	connA, _ := newLoopbackConnPair(t)
	track := NewVideoTrack("v1", 42, NewVideoParams(2_000_000, 30))
	track.SetConnection(connA)
	track.SetConnection(nil)

	res := track.SendFrame([]byte{1}, 90, true)
	assert.False(t, res.IsOk())
}

func TestMediaTrackDeliverInvokesCallback(t *testing.T) {
	track := NewVideoTrack("v1", 42, NewVideoParams(2_000_000, 30))
	var got []byte
	var gotTs uint32
	track.OnFrameReceived(func(payload []byte, ts uint32) {
		got = payload
		gotTs = ts
	})

	track.deliver([]byte{5, 6, 7}, 123)
	assert.Equal(t, []byte{5, 6, 7}, got)
	assert.Equal(t, uint32(123), gotTs)
}
