package rtc

import (
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/timing"
	"github.com/go-deskstream/deskstream/transport"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// retryPollInterval is how often a connected PeerConnection drives
// ProcessRetries on every data channel, well under each channel's retry
// interval (at least transport.RetryTimeout, 50ms, for the configs used
// in this module) so a due retry fires promptly.
const retryPollInterval = 10 * time.Millisecond

// PeerMode selects how a PeerConnection reaches its remote peer. ModeAuto
// is a forward-compatibility placeholder: today it behaves as ModeDirect,
// reserved for a future negotiation step that picks direct vs relay.
type PeerMode int

const (
	ModeDirect PeerMode = iota
	ModeRelay
	ModeAuto
)

// PeerConnectionConfig selects the connection variant and its endpoints.
type PeerConnectionConfig struct {
	Mode       PeerMode
	LocalAddr  string
	RemoteAddr *net.UDPAddr
	RelayDial  func() (transport.Connection, error)
}

// TrackAddedCallback fires when a track is added to the PeerConnection.
type TrackAddedCallback func(*MediaTrack)

// DataChannelAddedCallback fires when a data channel is created.
type DataChannelAddedCallback func(*DataChannel)

// PeerConnection assembles a Connection, a set of tracks, and a set of
// data channels, and runs the single-threaded receive loop that
// dispatches inbound packets to them: one Connection, many
// tracks/channels multiplexed over it by payload type.
type PeerConnection struct {
	mu             sync.Mutex
	id             string
	mode           PeerMode
	conn           transport.Connection
	tracks         map[string]*MediaTrack
	trackByKind    map[TrackKind]*MediaTrack
	channels       map[string]*DataChannel
	defaultChannel *DataChannel

	sender   *transport.RtpSender
	receiver *transport.RtpReceiver
	ssrc     uint32
	nextSSRC uint32

	stopCh     chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
	retryTimer *timing.Timer

	onTrack       TrackAddedCallback
	onDataChannel DataChannelAddedCallback
}

// NewPeerConnection creates an unconnected PeerConnection with a random
// local SSRC seed in [1000, 1e6).
func NewPeerConnection() *PeerConnection {
	return &PeerConnection{
		id:          uuid.NewString(),
		tracks:      make(map[string]*MediaTrack),
		trackByKind: make(map[TrackKind]*MediaTrack),
		channels:    make(map[string]*DataChannel),
		nextSSRC:    1000 + uint32(rand.Intn(999_000)),
	}
}

// ID returns the connection's session-correlation identifier, stamped
// on every log line the connection's subsystems emit.
func (pc *PeerConnection) ID() string { return pc.id }

// Initialize selects the direct/relay variant and constructs the
// Connection, without opening it.
func (pc *PeerConnection) Initialize(config PeerConnectionConfig) errs.Void {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.mode = config.Mode
	switch config.Mode {
	case ModeRelay:
		pc.conn = transport.NewRelayConnection(config.RelayDial)
	default: // ModeDirect and ModeAuto (placeholder: behaves as direct)
		pc.conn = transport.NewDirectConnection(config.LocalAddr, config.RemoteAddr)
	}
	return errs.OkVoid()
}

// AddTrack registers track, failing with InvalidOperation on a duplicate
// id. If the PeerConnection is already connected, the track is attached
// to the live connection immediately.
func (pc *PeerConnection) AddTrack(track *MediaTrack) errs.Void {
	pc.mu.Lock()
	if _, exists := pc.tracks[track.ID()]; exists {
		pc.mu.Unlock()
		return errs.ErrVoid(errs.KindInvalidOperation, "duplicate track id")
	}
	pc.tracks[track.ID()] = track
	pc.trackByKind[track.Kind()] = track
	conn := pc.conn
	running := pc.running.Load()
	pc.mu.Unlock()

	if running && conn != nil {
		track.SetConnection(conn)
	}

	pc.mu.Lock()
	cb := pc.onTrack
	pc.mu.Unlock()
	if cb != nil {
		cb(track)
	}
	return errs.OkVoid()
}

// RemoveTrack detaches and forgets the track with the given id.
func (pc *PeerConnection) RemoveTrack(id string) errs.Void {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	track, exists := pc.tracks[id]
	if !exists {
		return errs.ErrVoid(errs.KindInvalidOperation, "no such track")
	}
	track.SetConnection(nil)
	delete(pc.tracks, id)
	if pc.trackByKind[track.Kind()] == track {
		delete(pc.trackByKind, track.Kind())
	}
	return errs.OkVoid()
}

// GetTrack returns the track with id, if any.
func (pc *PeerConnection) GetTrack(id string) (*MediaTrack, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	t, ok := pc.tracks[id]
	return t, ok
}

// GetTracks returns every registered track.
func (pc *PeerConnection) GetTracks() []*MediaTrack {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := make([]*MediaTrack, 0, len(pc.tracks))
	for _, t := range pc.tracks {
		out = append(out, t)
	}
	return out
}

// CreateDataChannel registers a new channel under label, failing with
// InvalidOperation on a duplicate label.
func (pc *PeerConnection) CreateDataChannel(label string, config DataChannelConfig) errs.Result[*DataChannel] {
	pc.mu.Lock()
	if _, exists := pc.channels[label]; exists {
		pc.mu.Unlock()
		return errs.Err[*DataChannel](errs.KindInvalidOperation, "duplicate data channel label")
	}
	channel := NewDataChannel(label, config)
	pc.channels[label] = channel
	if pc.defaultChannel == nil {
		pc.defaultChannel = channel
	}
	conn := pc.conn
	running := pc.running.Load()
	ssrc := pc.ssrc
	pc.mu.Unlock()

	if running && conn != nil {
		channel.Open(conn, ssrc)
	}

	pc.mu.Lock()
	cb := pc.onDataChannel
	pc.mu.Unlock()
	if cb != nil {
		cb(channel)
	}
	return errs.Ok(channel)
}

// GetDataChannel returns the channel registered under label, if any.
func (pc *PeerConnection) GetDataChannel(label string) (*DataChannel, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	c, ok := pc.channels[label]
	return c, ok
}

// OnTrack registers the callback fired when a track is added.
func (pc *PeerConnection) OnTrack(cb TrackAddedCallback) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onTrack = cb
}

// OnDataChannel registers the callback fired when a data channel is
// created.
func (pc *PeerConnection) OnDataChannel(cb DataChannelAddedCallback) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.onDataChannel = cb
}

// Connect opens the connection, attaches each track's sender and each
// channel's internals, and spawns the receive loop.
func (pc *PeerConnection) Connect() errs.Void {
	pc.mu.Lock()
	conn := pc.conn
	pc.mu.Unlock()
	if conn == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "call Initialize before Connect")
	}

	if res := conn.Open(); res.IsErr() {
		return res
	}

	pc.mu.Lock()
	pc.ssrc = pc.nextSSRC
	pc.nextSSRC++
	pc.sender = transport.NewRtpSender(pc.ssrc, conn)
	pc.receiver = transport.NewRtpReceiver()
	for _, t := range pc.tracks {
		t.SetConnection(conn)
	}
	for _, c := range pc.channels {
		c.Open(conn, pc.ssrc)
	}
	pc.stopCh = make(chan struct{})
	pc.mu.Unlock()

	pc.running.Store(true)
	pc.wg.Add(1)
	go pc.receiveLoop()

	retryTimer := timing.New(retryPollInterval)
	retryTimer.SetType(timing.Periodic)
	retryTimer.SetCallback(pc.processChannelRetries)
	pc.mu.Lock()
	pc.retryTimer = retryTimer
	pc.mu.Unlock()
	retryTimer.Start()

	logrus.WithFields(logrus.Fields{
		"function": "PeerConnection.Connect",
		"id":       pc.id,
	}).Info("peer connection established")
	return errs.OkVoid()
}

// Disconnect stops the receive loop, detaches tracks and channels, and
// closes the connection.
func (pc *PeerConnection) Disconnect() errs.Void {
	if !pc.running.CompareAndSwap(true, false) {
		return errs.OkVoid()
	}

	pc.mu.Lock()
	stopCh := pc.stopCh
	retryTimer := pc.retryTimer
	pc.retryTimer = nil
	pc.mu.Unlock()
	if retryTimer != nil {
		retryTimer.Stop()
	}
	if stopCh != nil {
		close(stopCh)
	}
	pc.wg.Wait()

	pc.mu.Lock()
	conn := pc.conn
	for _, t := range pc.tracks {
		t.SetConnection(nil)
	}
	for _, c := range pc.channels {
		c.Close()
	}
	pc.mu.Unlock()

	if conn == nil {
		return errs.OkVoid()
	}
	return conn.Close()
}

// SendHeartbeat writes a heartbeat control message over the connection's
// own sender. Nothing in this package calls it automatically today; it
// exists as the forward-compat hook for a future keepalive ticker.
func (pc *PeerConnection) SendHeartbeat() errs.Void {
	pc.mu.Lock()
	sender := pc.sender
	pc.mu.Unlock()
	if sender == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "peer connection is not connected")
	}

	nowMs := uint32(time.Now().UnixMilli())
	msg := transport.EncodeControlMessage(transport.ControlMessage{
		Type:        transport.ControlHeartbeat,
		TimestampMs: nowMs,
	})
	return sender.SendControl(msg, nowMs)
}

// IsOpen reports whether the underlying connection is currently open.
func (pc *PeerConnection) IsOpen() bool {
	pc.mu.Lock()
	conn := pc.conn
	pc.mu.Unlock()
	return conn != nil && conn.IsOpen()
}

// receiveLoop is the PeerConnection's single receive thread: each
// iteration reads one datagram with a 100ms timeout and dispatches it
// by payload type. A malformed packet is skipped. On persistent error the
// loop closes the connection and exits, so IsOpen observes it as closed.
func (pc *PeerConnection) receiveLoop() {
	defer pc.wg.Done()

	pc.mu.Lock()
	conn := pc.conn
	receiver := pc.receiver
	pc.mu.Unlock()

	for {
		select {
		case <-pc.stopCh:
			return
		default:
		}

		res := receiver.Receive(conn, 100)
		if res.IsErr() {
			if res.Code() == errs.KindTimeout || res.Code() == errs.KindRTPHeaderInvalid {
				continue
			}
			conn.Close()
			logrus.WithFields(logrus.Fields{
				"function": "PeerConnection.receiveLoop",
				"id":       pc.id,
				"error":    res.Message(),
			}).Error("receive loop exiting on persistent error")
			return
		}

		pkt := res.Value()
		pc.dispatch(pkt)
	}
}

// processChannelRetries drives ProcessRetries on every registered data
// channel. Run periodically by retryTimer for the lifetime of the
// connection.
func (pc *PeerConnection) processChannelRetries() {
	pc.mu.Lock()
	channels := make([]*DataChannel, 0, len(pc.channels))
	for _, c := range pc.channels {
		channels = append(channels, c)
	}
	pc.mu.Unlock()

	for _, c := range channels {
		c.ProcessRetries()
	}
}

func (pc *PeerConnection) dispatch(pkt transport.RtpPacket) {
	switch pkt.Header.PayloadType {
	case transport.PayloadVideo:
		pc.deliverToTrack(TrackVideo, pkt)
	case transport.PayloadAudio:
		pc.deliverToTrack(TrackAudio, pkt)
	case transport.PayloadControl, transport.PayloadControlAck:
		pc.deliverToDefaultChannel(pkt)
	}
}

func (pc *PeerConnection) deliverToTrack(kind TrackKind, pkt transport.RtpPacket) {
	pc.mu.Lock()
	track := pc.trackByKind[kind]
	pc.mu.Unlock()
	if track != nil {
		track.deliver(pkt.Payload, pkt.Header.Timestamp)
	}
}

func (pc *PeerConnection) deliverToDefaultChannel(pkt transport.RtpPacket) {
	pc.mu.Lock()
	channel := pc.defaultChannel
	pc.mu.Unlock()
	if channel == nil {
		return
	}

	parsed := transport.DecodeControlMessage(pkt.Payload)
	if parsed.IsErr() {
		return
	}
	msg := parsed.Value()

	switch msg.Type {
	case transport.ControlInputAck:
		ackRes := transport.DecodeAckPayload(msg.Payload)
		if ackRes.IsOk() {
			channel.OnAck(ackRes.Value().AckedSequence)
		}
	default:
		channel.OnControlMessage(msg)
	}
}
