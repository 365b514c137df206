package errs

import (
	"errors"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestMapOSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"wrapped timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, KindTimeout},
		{"closed", net.ErrClosed, KindConnectionClosed},
		{"eof", io.EOF, KindConnectionClosed},
		{"addr in use", syscall.EADDRINUSE, KindSocketBindFailed},
		{"refused", syscall.ECONNREFUSED, KindNetworkError},
		{"net unreachable", syscall.ENETUNREACH, KindNetworkError},
		{"fd exhaustion", syscall.EMFILE, KindResourceExhausted},
		{"unclassified", errors.New("boom"), KindSocketRecvFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapOSError(tc.err, KindSocketRecvFailed))
		})
	}
}

func TestMapCodecError(t *testing.T) {
	assert.Equal(t, KindNone, MapCodecError(0))
	assert.Equal(t, KindNone, MapCodecError(42))
	assert.Equal(t, KindNone, MapCodecError(codecStatusAgain))
	assert.Equal(t, KindNone, MapCodecError(codecStatusEndOfStream))
	assert.Equal(t, KindDecoderNotFound, MapCodecError(codecStatusNotFound))
	assert.Equal(t, KindDecodeFailed, MapCodecError(codecStatusInvalidData))
	assert.Equal(t, KindResourceExhausted, MapCodecError(codecStatusOutOfMemory))
	assert.Equal(t, KindInvalidParameter, MapCodecError(codecStatusUnsupported))
	assert.Equal(t, KindCodecBridgeError, MapCodecError(-999))
}
