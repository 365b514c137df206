// Package session assembles the pipeline components into the two
// top-level objects an application drives directly: ControllerSession
// on the screen-sharing side, ControlledSession on the viewing side.
// Both are thin assemblers: they carry no buffering or rate logic the
// core components (rtc.PeerConnection, video.VideoEncoder/VideoDecoder,
// capture.ScreenCapturer, render.VideoRenderer) don't already
// encapsulate.
package session
