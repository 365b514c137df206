// Package errs provides the uniform success/failure carrier used throughout
// deskstream, along with the error taxonomy every subsystem maps its
// failures into.
//
// ErrorKind groups failure causes into numbered bands by subsystem so that
// logs and error messages stay stable across refactors: a caller can switch
// on the band (Kind/100) without caring about the exact kind, or on the
// exact kind when it matters. Result[T] is the generic carrier: exactly one
// of an ok value or an (ErrorKind, message) pair, with monadic combinators
// so call sites can chain fallible steps without repeating "if err != nil"
// boilerplate at every layer.
package errs

import "fmt"

// ErrorKind enumerates the possible failure causes across deskstream,
// partitioned into bands by subsystem. Band boundaries are part of the
// stable contract: general errors occupy 1-99, connection 100-199,
// protocol 200-299, transport 300-399, capture 400-499, codec 500-599,
// audio 600-699, system 700-799, config 800-899, codec-library bridge
// 900-999.
type ErrorKind int

const (
	// KindNone is the zero value; never present on a real error.
	KindNone ErrorKind = 0

	// General errors (1-99).
	KindUnknown          ErrorKind = 1
	KindInvalidArgument  ErrorKind = 2
	KindInvalidOperation ErrorKind = 3
	KindNotInitialized   ErrorKind = 4
	KindInternal         ErrorKind = 5

	// Connection errors (100-199).
	KindNotOpen               ErrorKind = 100
	KindConnectionClosed      ErrorKind = 101
	KindHandshakeTimeout      ErrorKind = 102
	KindHandshakeFailed       ErrorKind = 103
	KindRelayAllocationFailed ErrorKind = 104

	// Protocol errors (200-299).
	KindProtocolError         ErrorKind = 200
	KindRTPHeaderInvalid      ErrorKind = 201
	KindControlMessageInvalid ErrorKind = 202
	KindUnsupportedVersion    ErrorKind = 203

	// Transport errors (300-399).
	KindTimeout          ErrorKind = 300
	KindNetworkError     ErrorKind = 301
	KindSocketBindFailed ErrorKind = 302
	KindSocketSendFailed ErrorKind = 303
	KindSocketRecvFailed ErrorKind = 304

	// Capture errors (400-499).
	KindCaptureNotInitialized   ErrorKind = 400
	KindCaptureDeviceLost       ErrorKind = 401
	KindCaptureFrameUnavailable ErrorKind = 402

	// Codec errors (500-599).
	KindEncoderNotFound   ErrorKind = 500
	KindEncoderInitFailed ErrorKind = 501
	KindEncodeFailed      ErrorKind = 502
	KindDecoderNotFound   ErrorKind = 503
	KindDecoderInitFailed ErrorKind = 504
	KindDecodeFailed      ErrorKind = 505
	KindInvalidParameter  ErrorKind = 506

	// Audio errors (600-699).
	KindAudioParameterInvalid ErrorKind = 600

	// System errors (700-799).
	KindThreadCreateFailed     ErrorKind = 700
	KindResourceExhausted      ErrorKind = 701
	KindRenderError            ErrorKind = 702
	KindUnsupportedPixelFormat ErrorKind = 703

	// Config errors (800-899).
	KindConfigInvalid ErrorKind = 800

	// Codec-library bridge errors (900-999).
	KindCodecBridgeError ErrorKind = 900
)

var kindNames = map[ErrorKind]string{
	KindNone:                    "None",
	KindUnknown:                 "Unknown",
	KindInvalidArgument:         "InvalidArgument",
	KindInvalidOperation:        "InvalidOperation",
	KindNotInitialized:          "NotInitialized",
	KindInternal:                "Internal",
	KindNotOpen:                 "NotOpen",
	KindConnectionClosed:        "ConnectionClosed",
	KindHandshakeTimeout:        "HandshakeTimeout",
	KindHandshakeFailed:         "HandshakeFailed",
	KindRelayAllocationFailed:   "RelayAllocationFailed",
	KindProtocolError:           "ProtocolError",
	KindRTPHeaderInvalid:        "RTPHeaderInvalid",
	KindControlMessageInvalid:   "ControlMessageInvalid",
	KindUnsupportedVersion:      "UnsupportedVersion",
	KindTimeout:                 "Timeout",
	KindNetworkError:            "NetworkError",
	KindSocketBindFailed:        "SocketBindFailed",
	KindSocketSendFailed:        "SocketSendFailed",
	KindSocketRecvFailed:        "SocketRecvFailed",
	KindCaptureNotInitialized:   "CaptureNotInitialized",
	KindCaptureDeviceLost:       "CaptureDeviceLost",
	KindCaptureFrameUnavailable: "CaptureFrameUnavailable",
	KindEncoderNotFound:         "EncoderNotFound",
	KindEncoderInitFailed:       "EncoderInitFailed",
	KindEncodeFailed:            "EncodeFailed",
	KindDecoderNotFound:         "DecoderNotFound",
	KindDecoderInitFailed:       "DecoderInitFailed",
	KindDecodeFailed:            "DecodeFailed",
	KindInvalidParameter:        "InvalidParameter",
	KindAudioParameterInvalid:   "AudioParameterInvalid",
	KindThreadCreateFailed:      "ThreadCreateFailed",
	KindResourceExhausted:       "ResourceExhausted",
	KindConfigInvalid:           "ConfigInvalid",
	KindCodecBridgeError:        "CodecBridgeError",
	KindRenderError:             "RenderError",
	KindUnsupportedPixelFormat:  "UnsupportedPixelFormat",
}

// String returns the stable name used in logs and full-message formatting.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Band returns the hundred-wide band the kind belongs to, Kind/100 (0 for
// general, 1 for connection, 2 for protocol, and so on), useful for coarse-grained
// switches that don't care about the exact kind.
func (k ErrorKind) Band() int {
	return int(k) / 100
}
