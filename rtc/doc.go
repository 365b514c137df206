// Package rtc assembles the transport layer into session-facing
// primitives: a MediaTrack bound to a Connection through an RtpSender,
// a DataChannel wrapping a sequence/ack/retry helper over the control
// payload types, and a PeerConnection that owns the Connection plus a
// track and channel registry and drives the single-threaded receive
// loop that dispatches inbound packets to them.
//
// The package keeps a registry-and-callback shape: a mutex-guarded map
// of tracks and channels, a transport-interface reference, and callback
// hooks for inbound video/audio/control events. One Connection per
// PeerConnection, many tracks and channels multiplexed over it.
package rtc
