package rtc

import (
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/timing"
	"github.com/go-deskstream/deskstream/transport"
	"github.com/sirupsen/logrus"
)

// jitterPollInterval is how often a track with a jitter buffer attached
// polls TryExtractFrame. Short relative to any realistic bufferMs so
// reassembled frames are delivered promptly once they age out.
const jitterPollInterval = 5 * time.Millisecond

// TrackKind distinguishes a video track from an audio track.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

func (k TrackKind) String() string {
	if k == TrackAudio {
		return "audio"
	}
	return "video"
}

// VideoParams holds the codec knobs kept per video track: bitrate,
// framerate, and the fixed 90kHz RTP clock.
type VideoParams struct {
	BitrateBps uint32
	Framerate  uint32
	ClockRate  uint32
}

// NewVideoParams fills in the standard 90kHz clock.
func NewVideoParams(bitrateBps, framerate uint32) VideoParams {
	return VideoParams{BitrateBps: bitrateBps, Framerate: framerate, ClockRate: 90000}
}

// AudioParams holds the codec knobs kept per audio track: sample rate,
// channel count, and the fixed 48kHz RTP clock.
type AudioParams struct {
	SampleRate uint32
	Channels   uint8
	ClockRate  uint32
}

// NewAudioParams fills in the standard 48kHz clock.
func NewAudioParams(sampleRate uint32, channels uint8) AudioParams {
	return AudioParams{SampleRate: sampleRate, Channels: channels, ClockRate: 48000}
}

// FrameReceivedCallback is invoked on the receive side for each inbound
// payload matching this track's kind.
type FrameReceivedCallback func(payload []byte, timestamp uint32)

// MediaTrack is an identifier-keyed, kind-typed carrier of media
// payloads. It owns a lazily-constructed RtpSender, created when
// SetConnection is called with a non-nil Connection and torn down when
// detached. A track is bound to at most one connection at a time.
type MediaTrack struct {
	mu          sync.Mutex
	id          string
	kind        TrackKind
	ssrc        uint32
	enabled     bool
	videoParams VideoParams
	audioParams AudioParams
	sender      *transport.RtpSender
	onFrame     FrameReceivedCallback
	pacer       *transport.Pacer
	jitter      *transport.JitterBuffer
	jitterTimer *timing.Timer
}

// NewVideoTrack creates an enabled video track with the given id, SSRC,
// and codec parameters.
func NewVideoTrack(id string, ssrc uint32, params VideoParams) *MediaTrack {
	return &MediaTrack{id: id, kind: TrackVideo, ssrc: ssrc, enabled: true, videoParams: params}
}

// NewAudioTrack creates an enabled audio track with the given id, SSRC,
// and codec parameters.
func NewAudioTrack(id string, ssrc uint32, params AudioParams) *MediaTrack {
	return &MediaTrack{id: id, kind: TrackAudio, ssrc: ssrc, enabled: true, audioParams: params}
}

// ID returns the track's identifier, unique within its PeerConnection.
func (t *MediaTrack) ID() string { return t.id }

// Kind returns whether this is a video or audio track.
func (t *MediaTrack) Kind() TrackKind { return t.kind }

// SSRC returns the track's synchronization source.
func (t *MediaTrack) SSRC() uint32 { return t.ssrc }

// SetEnabled gates whether SendFrame accepts payloads.
func (t *MediaTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Enabled reports the current enabled state.
func (t *MediaTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetConnection attaches or detaches the track's sender. A non-nil
// connection constructs a fresh RtpSender bound to it; nil detaches,
// releasing the prior sender. The track's pacer, if any, carries over to
// the new sender.
func (t *MediaTrack) SetConnection(conn transport.Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if conn == nil {
		t.sender = nil
		return
	}
	t.sender = transport.NewRtpSender(t.ssrc, conn)
	if t.pacer != nil {
		t.sender.SetPacer(t.pacer)
	}
	logrus.WithFields(logrus.Fields{
		"function": "MediaTrack.SetConnection",
		"track_id": t.id,
		"kind":     t.kind.String(),
	}).Debug("track attached to connection")
}

// SetPacer attaches a send-rate shaper to this track's outgoing stream.
// Takes effect immediately if a sender is already bound, and persists
// across future SetConnection calls (e.g. reconnect).
func (t *MediaTrack) SetPacer(p *transport.Pacer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pacer = p
	if t.sender != nil {
		t.sender.SetPacer(p)
	}
}

// EnableJitterBuffer inserts a JitterBuffer between this track's inbound
// RTP dispatch and its frame-received callback: incoming payloads are
// bucketed by timestamp instead of delivered immediately, and a Timer
// polls TryExtractFrame every jitterPollInterval to deliver reassembled
// frames once they have aged past bufferMs. Intended for the receive
// side of a video/audio track, between RTP dispatch and decode.
func (t *MediaTrack) EnableJitterBuffer(bufferMs time.Duration, maxPackets int) {
	t.mu.Lock()
	if t.jitterTimer != nil {
		t.jitterTimer.Stop()
	}
	t.jitter = transport.NewJitterBuffer(bufferMs, maxPackets)
	timer := timing.New(jitterPollInterval)
	timer.SetType(timing.Periodic)
	timer.SetCallback(t.pollJitterBuffer)
	t.jitterTimer = timer
	t.mu.Unlock()
	timer.Start()
}

// DisableJitterBuffer stops frame reassembly and reverts to delivering
// each inbound payload directly, undoing EnableJitterBuffer.
func (t *MediaTrack) DisableJitterBuffer() {
	t.mu.Lock()
	timer := t.jitterTimer
	t.jitterTimer = nil
	t.jitter = nil
	t.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

func (t *MediaTrack) pollJitterBuffer() {
	t.mu.Lock()
	jb := t.jitter
	cb := t.onFrame
	t.mu.Unlock()
	if jb == nil || cb == nil {
		return
	}
	for {
		frame, ts, ok := jb.TryExtractFrame()
		if !ok {
			return
		}
		cb(frame, ts)
	}
}

// SendFrame forwards payload to the bound sender with the correct
// payload type for this track's kind. Disabled tracks return
// InvalidOperation; tracks with no bound sender return NotInitialized.
func (t *MediaTrack) SendFrame(payload []byte, ts uint32, markerFlag bool) errs.Void {
	t.mu.Lock()
	enabled := t.enabled
	sender := t.sender
	kind := t.kind
	t.mu.Unlock()

	if !enabled {
		return errs.ErrVoid(errs.KindInvalidOperation, "track is disabled")
	}
	if sender == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "track has no bound connection")
	}

	if kind == TrackVideo {
		return sender.SendVideoFrame(payload, ts, markerFlag)
	}
	return sender.SendAudioPacket(payload, ts)
}

// OnFrameReceived registers the callback fired by the owning
// PeerConnection's receive loop for each inbound payload matching this
// track's kind.
func (t *MediaTrack) OnFrameReceived(cb FrameReceivedCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFrame = cb
}

// deliver routes an inbound payload to the frame-received callback,
// either directly or through the jitter buffer if one is enabled. Called
// only from the owning PeerConnection's receive loop.
func (t *MediaTrack) deliver(payload []byte, ts uint32) {
	t.mu.Lock()
	jb := t.jitter
	cb := t.onFrame
	t.mu.Unlock()

	if jb != nil {
		jb.InsertPacket(ts, payload)
		return
	}
	if cb != nil {
		cb(payload, ts)
	}
}
