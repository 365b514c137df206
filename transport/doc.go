// Package transport implements the datagram transport and RTP-shaped
// media/control framing deskstream runs over: an OS-portable UDP socket,
// a polymorphic Connection (direct peer or placeholder relay), packet
// codecs for the RTP-shaped header and the control-message envelope,
// sender/receiver framing, a send-rate pacer, a jitter buffer, an
// ack-driven reliable channel for small control payloads, and the
// three-way handshake that bootstraps a session.
//
// Layering, leaf to root: a socket wrapper, a polymorphic connection
// (direct or relayed), a versioned handshake state machine, and the
// RTP-shaped wire format carried over all of them instead of a custom
// protocol's packet types.
package transport
