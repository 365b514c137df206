package session

import (
	"math/rand"
	"net"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/rtc"
	"github.com/go-deskstream/deskstream/transport"
	"github.com/sirupsen/logrus"
)

// InputEventCallback is invoked with each decoded input event arriving
// on the controller's input data channel.
type InputEventCallback func(transport.InputEvent)

// ControllerConfig assembles the screen-sharing side's PeerConnection:
// a fixed remote endpoint, and per-track enable toggles with their
// codec parameters.
type ControllerConfig struct {
	LocalAddr    string
	RemoteAddr   *net.UDPAddr
	VideoEnabled bool
	AudioEnabled bool
	VideoParams  rtc.VideoParams
	AudioParams  rtc.AudioParams
}

// ControllerSession is the pipeline assembler on the capturing side: it
// owns a direct-mode PeerConnection with a video track (H.264) and an
// audio track (Opus), each only when enabled in the config, and an
// ordered input-event data channel, wired
// together at Initialize and connected in the same call. Callers drive
// capture/encode themselves (capture.ScreenCapturer, video.VideoEncoder,
// video.ColorConverter) and hand the resulting bytes to SendVideoFrame/
// SendAudioPacket; this type carries no buffering of its own.
type ControllerSession struct {
	pc           *rtc.PeerConnection
	videoTrack   *rtc.MediaTrack
	audioTrack   *rtc.MediaTrack
	inputChannel *rtc.DataChannel
	onInput      InputEventCallback
}

// NewControllerSession creates an unassembled session; call Initialize
// to build and connect its pipeline.
func NewControllerSession() *ControllerSession {
	return &ControllerSession{pc: rtc.NewPeerConnection()}
}

// Initialize builds the direct-mode PeerConnection, attaches the
// configured tracks and the input channel, and connects.
func (s *ControllerSession) Initialize(config ControllerConfig) errs.Void {
	if res := s.pc.Initialize(rtc.PeerConnectionConfig{
		Mode:       rtc.ModeDirect,
		LocalAddr:  config.LocalAddr,
		RemoteAddr: config.RemoteAddr,
	}); res.IsErr() {
		return res
	}

	if config.VideoEnabled {
		s.videoTrack = rtc.NewVideoTrack("video", randomSSRC(), config.VideoParams)
		if res := s.pc.AddTrack(s.videoTrack); res.IsErr() {
			return res
		}
	}
	if config.AudioEnabled {
		s.audioTrack = rtc.NewAudioTrack("audio", randomSSRC(), config.AudioParams)
		if res := s.pc.AddTrack(s.audioTrack); res.IsErr() {
			return res
		}
	}

	channelRes := s.pc.CreateDataChannel("input", rtc.DataChannelConfig{
		Ordered:             true,
		MaxRetransmits:      transport.MaxRetries,
		MaxPacketLifeTimeMs: 5000,
	})
	if channelRes.IsErr() {
		return errs.ErrVoid(channelRes.Code(), channelRes.Message())
	}
	s.inputChannel = channelRes.Value()
	s.inputChannel.OnMessage(s.handleInputMessage)

	if res := s.pc.Connect(); res.IsErr() {
		return res
	}

	logrus.WithFields(logrus.Fields{
		"function":      "ControllerSession.Initialize",
		"id":            s.pc.ID(),
		"video_enabled": config.VideoEnabled,
		"audio_enabled": config.AudioEnabled,
	}).Info("controller session connected")
	return errs.OkVoid()
}

func (s *ControllerSession) handleInputMessage(data []byte) {
	res := transport.DecodeInputEvent(data)
	if res.IsErr() {
		logrus.WithFields(logrus.Fields{
			"function": "ControllerSession.handleInputMessage",
			"error":    res.Message(),
		}).Warn("dropping malformed input event")
		return
	}
	if s.onInput != nil {
		s.onInput(res.Value())
	}
}

// OnInputEvent registers the handler for decoded input events arriving
// from the controlled peer.
func (s *ControllerSession) OnInputEvent(cb InputEventCallback) {
	s.onInput = cb
}

// SendVideoFrame forwards an encoded video payload to the video track.
func (s *ControllerSession) SendVideoFrame(payload []byte, ts90k uint32, markerFlag bool) errs.Void {
	if s.videoTrack == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "video track not enabled")
	}
	return s.videoTrack.SendFrame(payload, ts90k, markerFlag)
}

// SendAudioPacket forwards an encoded audio payload to the audio track.
func (s *ControllerSession) SendAudioPacket(payload []byte, ts48k uint32) errs.Void {
	if s.audioTrack == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "audio track not enabled")
	}
	return s.audioTrack.SendFrame(payload, ts48k, false)
}

// SetVideoEnabled gates the video track without tearing down the
// connection.
func (s *ControllerSession) SetVideoEnabled(enabled bool) errs.Void {
	if s.videoTrack == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "video track not enabled")
	}
	s.videoTrack.SetEnabled(enabled)
	return errs.OkVoid()
}

// SetAudioEnabled gates the audio track without tearing down the
// connection.
func (s *ControllerSession) SetAudioEnabled(enabled bool) errs.Void {
	if s.audioTrack == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "audio track not enabled")
	}
	s.audioTrack.SetEnabled(enabled)
	return errs.OkVoid()
}

// Shutdown tears down the underlying PeerConnection.
func (s *ControllerSession) Shutdown() errs.Void {
	return s.pc.Disconnect()
}

// randomSSRC picks a track SSRC in [1000, 1e6).
func randomSSRC() uint32 {
	return uint32(1000 + rand.Intn(1000000-1000))
}
