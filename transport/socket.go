package transport

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// DefaultRecvTimeout is used when recv callers pass a negative timeout.
const DefaultRecvTimeout = 500 * time.Millisecond

// SocketStats is a snapshot of cumulative send/receive counters.
type SocketStats struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
}

// DatagramSocket is a thin OS-portable UDP wrapper. It makes no
// connected-socket assumption and has no handler-registration dispatch
// loop: every send carries its destination, every recv carries its
// source, and callers pull packets explicitly rather than registering
// callbacks.
type DatagramSocket struct {
	mu             sync.Mutex
	conn           *net.UDPConn
	localAddr      *net.UDPAddr
	defaultTimeout time.Duration
	sendBufSize    int
	recvBufSize    int

	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
}

// NewDatagramSocket creates an unopened socket configured for localAddr
// ("" or ":0" picks an ephemeral port). Call Open to bind.
func NewDatagramSocket(localAddr string, sendBufSize, recvBufSize int) *DatagramSocket {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		addr = &net.UDPAddr{}
	}
	return &DatagramSocket{
		localAddr:      addr,
		defaultTimeout: DefaultRecvTimeout,
		sendBufSize:    sendBufSize,
		recvBufSize:    recvBufSize,
	}
}

// Open binds the socket and applies the configured buffer sizes.
func (s *DatagramSocket) Open() errs.Void {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := net.ListenUDP("udp", s.localAddr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DatagramSocket.Open",
			"addr":     s.localAddr.String(),
			"error":    err.Error(),
		}).Error("failed to bind UDP socket")
		return errs.ErrVoid(errs.KindSocketBindFailed, err.Error())
	}

	if s.sendBufSize > 0 {
		_ = conn.SetWriteBuffer(s.sendBufSize)
	}
	if s.recvBufSize > 0 {
		_ = conn.SetReadBuffer(s.recvBufSize)
	}

	s.conn = conn
	s.localAddr = conn.LocalAddr().(*net.UDPAddr)

	logrus.WithFields(logrus.Fields{
		"function": "DatagramSocket.Open",
		"addr":     s.localAddr.String(),
	}).Info("UDP socket opened")
	return errs.OkVoid()
}

// Close releases the underlying file descriptor.
func (s *DatagramSocket) Close() errs.Void {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return errs.OkVoid()
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return errs.ErrVoid(errs.KindNetworkError, err.Error())
	}
	return errs.OkVoid()
}

// LocalAddr returns the bound local address.
func (s *DatagramSocket) LocalAddr() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localAddr
}

// SendTo writes data to the given destination.
func (s *DatagramSocket) SendTo(data []byte, addr *net.UDPAddr) errs.Void {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return errs.ErrVoid(errs.KindNotOpen, "socket not open")
	}

	n, err := conn.WriteToUDP(data, addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DatagramSocket.SendTo",
			"addr":     addr.String(),
			"error":    err.Error(),
		}).Error("UDP send failed")
		return errs.ErrVoid(errs.KindSocketSendFailed, err.Error())
	}

	s.bytesSent.Add(uint64(n))
	s.packetsSent.Add(1)
	return errs.OkVoid()
}

// RecvResult is the payload of a successful RecvFrom.
type RecvResult struct {
	Data []byte
	From *net.UDPAddr
}

// RecvFrom blocks until a datagram arrives, timeoutMs elapses, or the
// socket is closed. timeoutMs == 0 polls once without blocking; a
// negative value uses DefaultRecvTimeout. Timeout is reported as
// errs.KindTimeout, distinguished from other network errors so callers
// don't log spurious errors on an otherwise-idle socket.
func (s *DatagramSocket) RecvFrom(buf []byte, timeoutMs int) errs.Result[RecvResult] {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return errs.Err[RecvResult](errs.KindNotOpen, "socket not open")
	}

	timeout := resolveTimeout(timeoutMs, s.defaultTimeout)
	if timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = conn.SetReadDeadline(time.Now())
	}

	n, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		kind := errs.MapOSError(err, errs.KindSocketRecvFailed)
		if kind == errs.KindTimeout {
			return errs.Err[RecvResult](errs.KindTimeout, "receive timed out")
		}
		logrus.WithFields(logrus.Fields{
			"function": "DatagramSocket.RecvFrom",
			"error":    err.Error(),
		}).Error("UDP receive failed")
		return errs.Err[RecvResult](kind, err.Error())
	}

	s.bytesReceived.Add(uint64(n))
	s.packetsReceived.Add(1)
	return errs.Ok(RecvResult{Data: buf[:n], From: from})
}

// WaitForRead blocks until the socket is readable or timeoutMs elapses,
// without consuming a datagram's worth of buffer.
func (s *DatagramSocket) WaitForRead(timeoutMs int) bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}

	timeout := resolveTimeout(timeoutMs, s.defaultTimeout)
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	raw, err := conn.SyscallConn()
	if err != nil {
		return false
	}

	// raw.Read invokes the callback once immediately and then again after
	// each wait for readability; returning false on the first call forces
	// exactly one readiness wait without consuming the datagram. The read
	// deadline set above bounds that wait.
	calls := 0
	err = raw.Read(func(fd uintptr) bool {
		calls++
		return calls > 1
	})
	return err == nil
}

// Stats returns a snapshot of cumulative counters.
func (s *DatagramSocket) Stats() SocketStats {
	return SocketStats{
		BytesSent:       s.bytesSent.Load(),
		BytesReceived:   s.bytesReceived.Load(),
		PacketsSent:     s.packetsSent.Load(),
		PacketsReceived: s.packetsReceived.Load(),
	}
}

func resolveTimeout(timeoutMs int, def time.Duration) time.Duration {
	switch {
	case timeoutMs == 0:
		return 0
	case timeoutMs < 0:
		return def
	default:
		return time.Duration(timeoutMs) * time.Millisecond
	}
}
