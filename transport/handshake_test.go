package transport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeManagerThreeWayExchange(t *testing.T) {
	connA, connB := newLoopbackConnPair(t)

	senderA := NewRtpSender(111, connA)
	receiverA := NewRtpReceiver()
	hmA := NewHandshakeManager(senderA, receiverA, connA, 111)

	senderB := NewRtpSender(222, connB)
	receiverB := NewRtpReceiver()
	hmB := NewHandshakeManager(senderB, receiverB, connB, 222)

	var wg sync.WaitGroup
	wg.Add(2)

	var responderErr error
	go func() {
		defer wg.Done()
		responderErr = hmB.WaitForRequest(2000).AsError()
	}()

	var initiatorErr error
	go func() {
		defer wg.Done()
		if err := hmA.Initiate(0xCAFEBABE).AsError(); err != nil {
			initiatorErr = err
			return
		}
		initiatorErr = hmA.WaitForResponse(2000).AsError()
	}()

	wg.Wait()
	require.NoError(t, initiatorErr)
	require.NoError(t, responderErr)

	assert.Equal(t, HandshakeCompleted, hmA.State())
	assert.Equal(t, HandshakeCompleted, hmB.State())
	assert.Equal(t, uint32(222), hmA.RemoteSSRC())
	assert.Equal(t, uint32(111), hmB.RemoteSSRC())
}

func TestHandshakeManagerWaitForRequestTimesOut(t *testing.T) {
	_, connB := newLoopbackConnPair(t)
	hmB := NewHandshakeManager(NewRtpSender(1, connB), NewRtpReceiver(), connB, 1)

	res := hmB.WaitForRequest(30)
	assert.False(t, res.IsOk())
	assert.Equal(t, HandshakeIdle, hmB.State())
}

func TestHandshakeManagerSessionMismatchFails(t *testing.T) {
	connA, connB := newLoopbackConnPair(t)
	senderA := NewRtpSender(1, connA)
	hmA := NewHandshakeManager(senderA, NewRtpReceiver(), connA, 1)
	hmB := NewHandshakeManager(NewRtpSender(2, connB), NewRtpReceiver(), connB, 2)

	require.True(t, hmA.Initiate(100).IsOk())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.True(t, hmB.WaitForRequest(2000).IsOk())
	}()
	wg.Wait()

	// Tamper with the expected session id so the response is rejected.
	hmA.mu.Lock()
	hmA.sessionID = 999
	hmA.mu.Unlock()

	res := hmA.WaitForResponse(2000)
	assert.False(t, res.IsOk())
	assert.Equal(t, HandshakeFailed, hmA.State())
}
