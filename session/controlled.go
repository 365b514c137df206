package session

import (
	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/rtc"
	"github.com/go-deskstream/deskstream/transport"
	"github.com/sirupsen/logrus"
)

// VideoFrameCallback is invoked with each received (still encoded) video
// payload and its 90kHz RTP timestamp.
type VideoFrameCallback func(payload []byte, ts90k uint32)

// AudioPacketCallback is invoked with each received (still encoded)
// audio payload and its 48kHz RTP timestamp.
type AudioPacketCallback func(payload []byte, ts48k uint32)

// ControlledConfig carries the one thing the viewing side needs up
// front: which local port to listen on. There is no remote endpoint;
// the underlying DirectConnection learns its peer from the first
// datagram it receives.
type ControlledConfig struct {
	LocalAddr string
}

// ControlledSession is the pipeline assembler on the viewing side: a
// direct-mode PeerConnection with no configured remote, an on-track
// callback that wires frame delivery for the video and audio tracks it
// pre-declares, and an on-data-channel callback that binds the outbound
// input channel it creates in Initialize. As with
// ControllerSession, decode/render (video.VideoDecoder,
// render.VideoRenderer) are driven by the caller from the registered
// callbacks; this type only assembles the transport and track plumbing.
type ControlledSession struct {
	pc           *rtc.PeerConnection
	inputChannel *rtc.DataChannel

	onVideoFrame VideoFrameCallback
	onAudioFrame AudioPacketCallback
}

// NewControlledSession creates an unassembled session; call Initialize
// to build and connect its pipeline.
func NewControlledSession() *ControlledSession {
	return &ControlledSession{pc: rtc.NewPeerConnection()}
}

// Initialize builds the direct-mode PeerConnection with no remote
// endpoint, pre-declares a video and an audio track so the receive
// loop has somewhere to dispatch inbound payloads by kind, creates the
// outbound input channel, and connects. The on-track/on-data-channel
// callbacks fire synchronously as each is added, attaching the
// payload-delivery path and the input-channel reference for the viewing
// side.
func (s *ControlledSession) Initialize(config ControlledConfig) errs.Void {
	s.pc.OnTrack(s.handleTrackAdded)
	s.pc.OnDataChannel(s.handleDataChannelAdded)

	if res := s.pc.Initialize(rtc.PeerConnectionConfig{
		Mode:      rtc.ModeDirect,
		LocalAddr: config.LocalAddr,
	}); res.IsErr() {
		return res
	}

	videoTrack := rtc.NewVideoTrack("video", randomSSRC(), rtc.VideoParams{})
	if res := s.pc.AddTrack(videoTrack); res.IsErr() {
		return res
	}
	audioTrack := rtc.NewAudioTrack("audio", randomSSRC(), rtc.AudioParams{})
	if res := s.pc.AddTrack(audioTrack); res.IsErr() {
		return res
	}

	channelRes := s.pc.CreateDataChannel("input", rtc.DataChannelConfig{
		Ordered:             true,
		MaxRetransmits:      transport.MaxRetries,
		MaxPacketLifeTimeMs: 5000,
	})
	if channelRes.IsErr() {
		return errs.ErrVoid(channelRes.Code(), channelRes.Message())
	}

	if res := s.pc.Connect(); res.IsErr() {
		return res
	}

	logrus.WithFields(logrus.Fields{
		"function": "ControlledSession.Initialize",
		"id":       s.pc.ID(),
		"local":    config.LocalAddr,
	}).Info("controlled session listening")
	return errs.OkVoid()
}

func (s *ControlledSession) handleTrackAdded(track *rtc.MediaTrack) {
	switch track.Kind() {
	case rtc.TrackVideo:
		track.OnFrameReceived(func(payload []byte, ts uint32) {
			if s.onVideoFrame != nil {
				s.onVideoFrame(payload, ts)
			}
		})
	case rtc.TrackAudio:
		track.OnFrameReceived(func(payload []byte, ts uint32) {
			if s.onAudioFrame != nil {
				s.onAudioFrame(payload, ts)
			}
		})
	}
}

func (s *ControlledSession) handleDataChannelAdded(channel *rtc.DataChannel) {
	s.inputChannel = channel
}

// OnVideoFrameReceived registers the callback fired for each received
// video payload.
func (s *ControlledSession) OnVideoFrameReceived(cb VideoFrameCallback) {
	s.onVideoFrame = cb
}

// OnAudioPacketReceived registers the callback fired for each received
// audio payload.
func (s *ControlledSession) OnAudioPacketReceived(cb AudioPacketCallback) {
	s.onAudioFrame = cb
}

func (s *ControlledSession) sendInputEvent(event transport.InputEvent) errs.Void {
	if s.inputChannel == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "input channel not yet bound by controller")
	}
	return s.inputChannel.Send(transport.EncodeInputEvent(event))
}

// SendMouseMove reports a pointer move to x,y.
func (s *ControlledSession) SendMouseMove(x, y uint16) errs.Void {
	return s.sendInputEvent(transport.InputEvent{Type: transport.InputMouseMove, X: x, Y: y})
}

// SendMouseClick reports a button press or release at x,y.
func (s *ControlledSession) SendMouseClick(button uint8, isDown bool, x, y uint16) errs.Void {
	return s.sendInputEvent(transport.InputEvent{
		Type:   transport.InputMouseClick,
		X:      x,
		Y:      y,
		Button: button,
		State:  boolToState(isDown),
	})
}

// SendMouseWheel reports a scroll delta at x,y.
func (s *ControlledSession) SendMouseWheel(delta int16, x, y uint16) errs.Void {
	return s.sendInputEvent(transport.InputEvent{Type: transport.InputMouseWheel, X: x, Y: y, Wheel: delta})
}

// SendKeyEvent reports a key press or release with the active modifier
// bitmask.
func (s *ControlledSession) SendKeyEvent(keyCode uint32, isDown bool, modifiers uint32) errs.Void {
	return s.sendInputEvent(transport.InputEvent{
		Type:      stateEventType(isDown),
		KeyCode:   keyCode,
		State:     boolToState(isDown),
		Modifiers: modifiers,
	})
}

// Shutdown tears down the underlying PeerConnection.
func (s *ControlledSession) Shutdown() errs.Void {
	return s.pc.Disconnect()
}

func boolToState(isDown bool) uint8 {
	if isDown {
		return 1
	}
	return 0
}

func stateEventType(isDown bool) transport.InputEventType {
	if isDown {
		return transport.InputKeyDown
	}
	return transport.InputKeyUp
}
