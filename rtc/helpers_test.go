package rtc

import (
	"net"
	"testing"

	"github.com/go-deskstream/deskstream/transport"
	"github.com/stretchr/testify/require"
)

// freeUDPAddr reserves an ephemeral UDP port and releases it immediately,
// so a DirectConnection can be pre-wired with its peer's address before
// either side opens.
func freeUDPAddr(t *testing.T) *net.UDPAddr {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	addr := conn.LocalAddr().(*net.UDPAddr)
	require.NoError(t, conn.Close())
	return addr
}

// newLoopbackConnPair builds two connected DirectConnections over
// loopback, mirroring the transport package's own test helper but built
// from exported API only.
func newLoopbackConnPair(t *testing.T) (*transport.DirectConnection, *transport.DirectConnection) {
	t.Helper()
	addrA := freeUDPAddr(t)
	addrB := freeUDPAddr(t)

	a := transport.NewDirectConnection(addrA.String(), addrB)
	require.True(t, a.Open().IsOk())
	t.Cleanup(func() { a.Close() })

	b := transport.NewDirectConnection(addrB.String(), addrA)
	require.True(t, b.Open().IsOk())
	t.Cleanup(func() { b.Close() })

	return a, b
}
