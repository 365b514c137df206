package transport

import (
	"errors"
	"net"
	"testing"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udpAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", s)
	require.NoError(t, err)
	return addr
}

func TestDirectConnectionLearnsPeerFromFirstDatagram(t *testing.T) {
	server := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, server.Open().IsOk())
	defer server.Close()

	client := NewDirectConnection("127.0.0.1:0", server.socket.LocalAddr())
	require.True(t, client.Open().IsOk())
	defer client.Close()

	require.True(t, server.Send([]byte("too early")).IsErr())

	require.True(t, client.Send([]byte("hello")).IsOk())
	buf := make([]byte, 1500)
	res := server.Recv(buf, 1000)
	require.True(t, res.IsOk())
	assert.Equal(t, []byte("hello"), res.Value())

	require.True(t, server.Send([]byte("reply")).IsOk())
	reply := client.Recv(buf, 1000)
	require.True(t, reply.IsOk())
	assert.Equal(t, []byte("reply"), reply.Value())
}

func TestDirectConnectionSendRecv(t *testing.T) {
	a := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, a.Open().IsOk())
	defer a.Close()

	b := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, b.Open().IsOk())
	defer b.Close()

	a.SetRemote(b.socket.LocalAddr())
	b.SetRemote(a.socket.LocalAddr())

	require.True(t, a.Send([]byte("ping")).IsOk())
	buf := make([]byte, 1500)
	res := b.Recv(buf, 1000)
	require.True(t, res.IsOk())
	assert.Equal(t, []byte("ping"), res.Value())
}

func TestDirectConnectionDropsUnexpectedSender(t *testing.T) {
	a := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, a.Open().IsOk())
	defer a.Close()

	stranger := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, stranger.Open().IsOk())
	defer stranger.Close()

	b := NewDirectConnection("127.0.0.1:0", udpAddr(t, "127.0.0.1:1"))
	require.True(t, b.Open().IsOk())
	defer b.Close()
	a.peer = b.socket.LocalAddr()

	stranger.peer = a.socket.LocalAddr()
	require.True(t, stranger.Send([]byte("noise")).IsOk())

	buf := make([]byte, 1500)
	res := a.Recv(buf, 50)
	assert.False(t, res.IsOk())
	assert.Equal(t, errs.KindTimeout, res.Code())
}

func TestDirectConnectionSendBeforeOpenFails(t *testing.T) {
	a := NewDirectConnection("127.0.0.1:0", udpAddr(t, "127.0.0.1:9"))
	res := a.Send([]byte("x"))
	assert.False(t, res.IsOk())
}

func TestRelayConnectionFailsWithoutDialer(t *testing.T) {
	r := NewRelayConnection(nil)
	res := r.Open()
	assert.False(t, res.IsOk())
	assert.False(t, r.IsOpen())
}

func TestRelayConnectionConnectsAndForwards(t *testing.T) {
	b := NewDirectConnection("127.0.0.1:0", nil)
	require.True(t, b.Open().IsOk())
	defer b.Close()

	a := NewDirectConnection("127.0.0.1:0", b.socket.LocalAddr())
	r := NewRelayConnection(func() (Connection, error) {
		return a, nil
	})

	require.True(t, r.Open().IsOk())
	defer r.Close()
	assert.True(t, r.IsOpen())
	assert.Equal(t, ModeRelay, r.Mode())

	b.peer = a.socket.LocalAddr()
	require.True(t, r.Send([]byte("via-relay")).IsOk())

	buf := make([]byte, 1500)
	res := b.Recv(buf, 1000)
	require.True(t, res.IsOk())
	assert.Equal(t, []byte("via-relay"), res.Value())
}

func TestRelayConnectionDialErrorSetsFailed(t *testing.T) {
	r := NewRelayConnection(func() (Connection, error) {
		return nil, errors.New("no route")
	})
	res := r.Open()
	assert.False(t, res.IsOk())
	assert.False(t, r.IsOpen())
}
