package errs

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// MapOSError converts an error returned by the operating system (socket
// calls, file handles, thread primitives) into the closest ErrorKind.
// fallback is returned when no more specific classification applies.
func MapOSError(err error, fallback ErrorKind) ErrorKind {
	if err == nil {
		return KindNone
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if os.IsTimeout(err) {
		return KindTimeout
	}

	switch {
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF):
		return KindConnectionClosed
	case errors.Is(err, syscall.EADDRINUSE), errors.Is(err, syscall.EACCES):
		return KindSocketBindFailed
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return KindNetworkError
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE),
		errors.Is(err, syscall.ENOMEM):
		return KindResourceExhausted
	}
	return fallback
}

// Codec-bridge status codes, as reported by the external encode/decode
// library behind the VideoEncoder/VideoDecoder contracts. Negative
// values follow the library's errno-style convention.
const (
	codecStatusAgain        = -11
	codecStatusInvalidData  = -22
	codecStatusNotFound     = -2
	codecStatusOutOfMemory  = -12
	codecStatusUnsupported  = -38
	codecStatusEndOfStream  = -541478725
	codecStatusExperimental = -733130664
)

// MapCodecError converts a codec-library status code into the closest
// ErrorKind. Zero and positive codes are success; KindNone is returned
// for those so callers can branch on the mapped kind alone.
//
// A status of "again" (the library wants more input before it can emit
// output) maps to KindNone as well: it is the drain-on-EAGAIN case the
// encode/decode loops absorb internally, not a failure.
func MapCodecError(code int) ErrorKind {
	if code >= 0 || code == codecStatusAgain || code == codecStatusEndOfStream {
		return KindNone
	}
	switch code {
	case codecStatusNotFound:
		return KindDecoderNotFound
	case codecStatusInvalidData:
		return KindDecodeFailed
	case codecStatusOutOfMemory:
		return KindResourceExhausted
	case codecStatusUnsupported, codecStatusExperimental:
		return KindInvalidParameter
	}
	return KindCodecBridgeError
}
