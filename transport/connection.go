package transport

import (
	"net"
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// ConnectionMode distinguishes how a Connection reaches its peer.
type ConnectionMode int

const (
	// ModeDirect sends datagrams straight to the peer's address.
	ModeDirect ConnectionMode = iota
	// ModeRelay routes through an intermediary relay server.
	ModeRelay
)

func (m ConnectionMode) String() string {
	if m == ModeRelay {
		return "relay"
	}
	return "direct"
}

// Connection is the polymorphic transport a session talks over, hiding
// whether packets travel straight to the peer or through a relay. Every
// layer above this one (PacketCodec, RtpSender/Receiver, the reliable
// channel, the handshake) is written against this interface, not against
// DatagramSocket directly.
type Connection interface {
	Open() errs.Void
	Close() errs.Void
	IsOpen() bool
	Send(data []byte) errs.Void
	Recv(buf []byte, timeoutMs int) errs.Result[[]byte]
	Mode() ConnectionMode
}

// DirectConnection sends and receives datagrams straight to/from a single
// fixed peer address over a DatagramSocket. One peer per connection:
// each PeerConnection owns exactly one remote endpoint.
type DirectConnection struct {
	mu     sync.Mutex
	socket *DatagramSocket
	peer   *net.UDPAddr
	open   bool
}

// NewDirectConnection creates a connection bound to localAddr that will
// talk to peer once Open is called.
func NewDirectConnection(localAddr string, peer *net.UDPAddr) *DirectConnection {
	return &DirectConnection{
		socket: NewDatagramSocket(localAddr, 0, 0),
		peer:   peer,
	}
}

// SetRemote replaces the fixed peer address. Usable before or after
// Open; an address change takes effect on the next Send.
func (c *DirectConnection) SetRemote(peer *net.UDPAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peer = peer
}

// Open binds the underlying socket.
func (c *DirectConnection) Open() errs.Void {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := c.socket.Open()
	if res.IsOk() {
		c.open = true
	}
	return res
}

// Close releases the underlying socket.
func (c *DirectConnection) Close() errs.Void {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return c.socket.Close()
}

// IsOpen reports whether the connection is usable.
func (c *DirectConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Send writes data to the fixed peer address. A connection opened with
// no peer (the ControlledSession "accept first peer" case) must first
// learn one via Recv; Send returns NotOpen until it does.
func (c *DirectConnection) Send(data []byte) errs.Void {
	c.mu.Lock()
	peer := c.peer
	open := c.open
	c.mu.Unlock()

	if !open {
		return errs.ErrVoid(errs.KindNotOpen, "connection not open")
	}
	if peer == nil {
		return errs.ErrVoid(errs.KindNotOpen, "no peer learned yet")
	}
	return c.socket.SendTo(data, peer)
}

// Recv reads the next datagram. If the connection has no configured
// peer yet, the first datagram received is accepted unconditionally
// and its sender becomes the connection's peer from then on. This is
// how a ControlledSession's "no remote configured, accept the first
// peer" contract is implemented. Once a peer is set, any datagram not
// from it is silently dropped as noise rather than surfaced as an
// error, since an unrelated host on the network is not this
// connection's concern.
func (c *DirectConnection) Recv(buf []byte, timeoutMs int) errs.Result[[]byte] {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()

	if !open {
		return errs.Err[[]byte](errs.KindNotOpen, "connection not open")
	}

	deadline := time.Now().Add(resolveTimeout(timeoutMs, DefaultRecvTimeout))
	for {
		remaining := time.Until(deadline)
		if timeoutMs >= 0 && remaining <= 0 {
			return errs.Err[[]byte](errs.KindTimeout, "receive timed out")
		}
		res := c.socket.RecvFrom(buf, int(remaining/time.Millisecond))
		if res.IsErr() {
			return errs.Err[[]byte](res.Code(), res.Message())
		}
		got := res.Value()

		c.mu.Lock()
		peer := c.peer
		if peer == nil {
			c.peer = got.From
			peer = got.From
			logrus.WithFields(logrus.Fields{
				"function": "DirectConnection.Recv",
				"peer":     peer.String(),
			}).Info("learned peer address from first datagram")
		}
		c.mu.Unlock()

		if got.From.IP.Equal(peer.IP) && got.From.Port == peer.Port {
			return errs.Ok(got.Data)
		}
		logrus.WithFields(logrus.Fields{
			"function": "DirectConnection.Recv",
			"from":     got.From.String(),
			"expected": peer.String(),
		}).Debug("dropped datagram from unexpected sender")
	}
}

// Mode reports ModeDirect.
func (c *DirectConnection) Mode() ConnectionMode { return ModeDirect }

// RelayConnection is a placeholder relay transport: it models the
// connect/disconnect lifecycle a relay hop would need (Disconnected ->
// Connecting -> Connected -> Failed), but carries no relay protocol of
// its own. It always returns KindRelayAllocationFailed from Open until
// a concrete relay dialer is supplied.
type RelayConnection struct {
	mu    sync.Mutex
	state RelayState
	dial  func() (Connection, error)
	inner Connection
}

// RelayState tracks the relay connection lifecycle.
type RelayState int

const (
	RelayDisconnected RelayState = iota
	RelayConnecting
	RelayConnected
	RelayFailed
)

// NewRelayConnection creates a relay connection that will use dial to
// obtain an underlying Connection when Open is called. A nil dial always
// fails, representing "no relay configured".
func NewRelayConnection(dial func() (Connection, error)) *RelayConnection {
	return &RelayConnection{state: RelayDisconnected, dial: dial}
}

// Open attempts to establish the relay hop.
func (r *RelayConnection) Open() errs.Void {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dial == nil {
		r.state = RelayFailed
		return errs.ErrVoid(errs.KindRelayAllocationFailed, "no relay configured")
	}

	r.state = RelayConnecting
	inner, err := r.dial()
	if err != nil {
		r.state = RelayFailed
		return errs.ErrVoid(errs.KindRelayAllocationFailed, err.Error())
	}

	if res := inner.Open(); res.IsErr() {
		r.state = RelayFailed
		return res
	}

	r.inner = inner
	r.state = RelayConnected
	return errs.OkVoid()
}

// Close tears down the relay hop.
func (r *RelayConnection) Close() errs.Void {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RelayDisconnected
	if r.inner == nil {
		return errs.OkVoid()
	}
	res := r.inner.Close()
	r.inner = nil
	return res
}

// IsOpen reports whether the relay hop is connected.
func (r *RelayConnection) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == RelayConnected
}

// Send forwards data over the relayed connection.
func (r *RelayConnection) Send(data []byte) errs.Void {
	r.mu.Lock()
	inner := r.inner
	state := r.state
	r.mu.Unlock()

	if state != RelayConnected || inner == nil {
		return errs.ErrVoid(errs.KindNotOpen, "relay not connected")
	}
	return inner.Send(data)
}

// Recv reads from the relayed connection.
func (r *RelayConnection) Recv(buf []byte, timeoutMs int) errs.Result[[]byte] {
	r.mu.Lock()
	inner := r.inner
	state := r.state
	r.mu.Unlock()

	if state != RelayConnected || inner == nil {
		return errs.Err[[]byte](errs.KindNotOpen, "relay not connected")
	}
	return inner.Recv(buf, timeoutMs)
}

// Mode reports ModeRelay.
func (r *RelayConnection) Mode() ConnectionMode { return ModeRelay }
