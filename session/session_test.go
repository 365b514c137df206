package session

import (
	"net"
	"testing"
	"time"

	"github.com/go-deskstream/deskstream/rtc"
	"github.com/go-deskstream/deskstream/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) *net.UDPAddr {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	addr := conn.LocalAddr().(*net.UDPAddr)
	require.NoError(t, conn.Close())
	return addr
}

func TestControllerControlledVideoFrameRoundTrip(t *testing.T) {
	controlledAddr := freePort(t)

	controlled := NewControlledSession()
	received := make(chan []byte, 1)
	controlled.OnVideoFrameReceived(func(payload []byte, ts uint32) {
		received <- payload
	})
	require.True(t, controlled.Initialize(ControlledConfig{LocalAddr: controlledAddr.String()}).IsOk())
	defer controlled.Shutdown()

	controllerAddr := freePort(t)
	controller := NewControllerSession()
	require.True(t, controller.Initialize(ControllerConfig{
		LocalAddr:    controllerAddr.String(),
		RemoteAddr:   controlledAddr,
		VideoEnabled: true,
		VideoParams:  rtc.NewVideoParams(1_000_000, 30),
	}).IsOk())
	defer controller.Shutdown()

	payload := []byte("encoded-frame-bytes")
	require.True(t, controller.SendVideoFrame(payload, 12345, true).IsOk())

	select {
	case got := <-received:
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for video frame")
	}
}

func TestControllerRejectsDisabledTrack(t *testing.T) {
	controller := NewControllerSession()
	addr := freePort(t)
	require.True(t, controller.Initialize(ControllerConfig{
		LocalAddr:  addr.String(),
		RemoteAddr: freePort(t),
	}).IsOk())
	defer controller.Shutdown()

	res := controller.SendVideoFrame([]byte("x"), 0, false)
	assert.True(t, res.IsErr())
}

// TestControlledSessionInputEventRoundTrip exercises the reverse flow:
// once the controller has sent at least one datagram, the controlled
// side's connection has learned the controller's address and can send
// input events back over its own input data channel.
func TestControlledSessionInputEventRoundTrip(t *testing.T) {
	controlledAddr := freePort(t)
	controlled := NewControlledSession()
	require.True(t, controlled.Initialize(ControlledConfig{LocalAddr: controlledAddr.String()}).IsOk())
	defer controlled.Shutdown()

	controllerAddr := freePort(t)
	controller := NewControllerSession()
	events := make(chan uint16, 1)
	controller.OnInputEvent(func(e transport.InputEvent) {
		events <- e.X
	})
	require.True(t, controller.Initialize(ControllerConfig{
		LocalAddr:    controllerAddr.String(),
		RemoteAddr:   controlledAddr,
		VideoEnabled: true,
		VideoParams:  rtc.NewVideoParams(1_000_000, 30),
	}).IsOk())
	defer controller.Shutdown()

	// Prime the controlled side's connection with the controller's
	// address by sending one frame; its receive loop learns the peer
	// as a side effect of processing this datagram.
	require.True(t, controller.SendVideoFrame([]byte("priming-frame"), 1, true).IsOk())
	time.Sleep(100 * time.Millisecond)

	require.True(t, controlled.SendMouseMove(42, 99).IsOk())

	select {
	case x := <-events:
		assert.Equal(t, uint16(42), x)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for input event")
	}
}
