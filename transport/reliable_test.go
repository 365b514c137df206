package transport

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReliableInputChannelSendRequiresSender(t *testing.T) {
	c := NewReliableInputChannel(nil)
	res := c.Send(InputEvent{Type: InputMouseMove, X: 1, Y: 2})
	assert.False(t, res.IsOk())
}

func TestReliableInputChannelSendAndAck(t *testing.T) {
	connA, connB := newLoopbackConnPair(t)
	senderA := NewRtpSender(1, connA)
	c := NewReliableInputChannel(senderA)

	require.True(t, c.Send(InputEvent{Type: InputKeyDown, KeyCode: 65}).IsOk())
	assert.Equal(t, uint64(1), c.Stats().Sent)

	buf := make([]byte, 1500)
	res := connB.Recv(buf, 1000)
	require.True(t, res.IsOk())
	parsed := ParseRtpPacket(res.Value())
	require.True(t, parsed.IsOk())
	assert.Equal(t, PayloadControl, parsed.Value().Header.PayloadType)

	c.OnAck(AckPayload{AckedSequence: 0})
	assert.Equal(t, uint64(1), c.Stats().Acked)
}

func TestReliableInputChannelCumulativeAckDropsEarlierPending(t *testing.T) {
	connA, _ := newLoopbackConnPair(t)
	senderA := NewRtpSender(1, connA)
	c := NewReliableInputChannel(senderA)

	for i := 0; i < 3; i++ {
		require.True(t, c.Send(InputEvent{Type: InputMouseClick}).IsOk())
	}
	assert.Len(t, c.pending, 3)

	c.OnAck(AckPayload{AckedSequence: 1})
	assert.Len(t, c.pending, 1)
	assert.Equal(t, uint16(2), c.pending[0].sequence)
}

func TestReliableInputChannelProcessRetriesResendsAndAbandons(t *testing.T) {
	connA, connB := newLoopbackConnPair(t)
	senderA := NewRtpSender(1, connA)
	c := NewReliableInputChannel(senderA)

	require.True(t, c.Send(InputEvent{Type: InputKeyUp}).IsOk())
	buf := make([]byte, 1500)
	require.True(t, connB.Recv(buf, 1000).IsOk()) // drain original send

	for i := 0; i < MaxRetries; i++ {
		time.Sleep(RetryTimeout + 5*time.Millisecond)
		c.ProcessRetries()
		require.True(t, connB.Recv(buf, 1000).IsOk())
	}
	assert.Equal(t, uint64(MaxRetries), c.Stats().Retried)

	time.Sleep(RetryTimeout + 5*time.Millisecond)
	c.ProcessRetries()
	assert.Equal(t, uint64(1), c.Stats().Abandoned)
	assert.Empty(t, c.pending)
}

func TestReliableInputChannelOnControlMessageInvokesCallbackAndAcks(t *testing.T) {
	connA, connB := newLoopbackConnPair(t)
	senderB := NewRtpSender(2, connB)
	receiver := NewReliableInputChannel(senderB)

	var got InputEvent
	var invoked int32
	receiver.OnEvent(func(e InputEvent) {
		got = e
		atomic.StoreInt32(&invoked, 1)
	})

	msg := EncodeControlMessage(ControlMessage{
		Type:     ControlInputEvent,
		Sequence: 7,
		Payload:  EncodeInputEvent(InputEvent{Type: InputMouseMove, X: 10, Y: 20}),
	})
	require.True(t, receiver.OnControlMessage(msg).IsOk())
	assert.Equal(t, int32(1), atomic.LoadInt32(&invoked))
	assert.Equal(t, uint16(10), got.X)

	buf := make([]byte, 1500)
	res := connA.Recv(buf, 1000)
	require.True(t, res.IsOk())
	parsed := ParseRtpPacket(res.Value())
	require.True(t, parsed.IsOk())
	assert.Equal(t, PayloadControlAck, parsed.Value().Header.PayloadType)

	ackMsg := DecodeControlMessage(parsed.Value().Payload)
	require.True(t, ackMsg.IsOk())
	assert.Equal(t, ControlInputAck, ackMsg.Value().Type)
}
