package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterBufferHoldsUntilBufferMsElapsed(t *testing.T) {
	jb := NewJitterBuffer(40*time.Millisecond, 0)
	jb.InsertPacket(1000, []byte("a"))

	_, _, ok := jb.TryExtractFrame()
	assert.False(t, ok)

	time.Sleep(50 * time.Millisecond)
	frame, ts, ok := jb.TryExtractFrame()
	require.True(t, ok)
	assert.Equal(t, uint32(1000), ts)
	assert.Equal(t, []byte("a"), frame)
}

func TestJitterBufferConcatenatesSameTimestampBucket(t *testing.T) {
	jb := NewJitterBuffer(10*time.Millisecond, 0)
	jb.InsertPacket(2000, []byte("hel"))
	jb.InsertPacket(2000, []byte("lo"))

	time.Sleep(20 * time.Millisecond)
	frame, ts, ok := jb.TryExtractFrame()
	require.True(t, ok)
	assert.Equal(t, uint32(2000), ts)
	assert.Equal(t, []byte("hello"), frame)
}

func TestJitterBufferOverflowDropsOldestBucket(t *testing.T) {
	jb := NewJitterBuffer(time.Hour, 2)
	jb.InsertPacket(1, []byte("a"))
	jb.InsertPacket(2, []byte("b"))
	jb.InsertPacket(3, []byte("c"))

	assert.Equal(t, uint64(1), jb.DroppedPackets())
	assert.Equal(t, 2, jb.Len())

	_, ts, _ := jb.TryExtractFrame()
	_ = ts
}

func TestJitterBufferExtractsInTimestampOrder(t *testing.T) {
	jb := NewJitterBuffer(1*time.Millisecond, 0)
	jb.InsertPacket(500, []byte("second"))
	jb.InsertPacket(100, []byte("first"))

	time.Sleep(5 * time.Millisecond)
	_, ts1, ok := jb.TryExtractFrame()
	require.True(t, ok)
	assert.Equal(t, uint32(100), ts1)

	_, ts2, ok := jb.TryExtractFrame()
	require.True(t, ok)
	assert.Equal(t, uint32(500), ts2)
}

func TestJitterBufferReset(t *testing.T) {
	jb := NewJitterBuffer(1*time.Millisecond, 0)
	jb.InsertPacket(1, []byte("x"))
	jb.Reset()
	assert.Equal(t, 0, jb.Len())

	time.Sleep(5 * time.Millisecond)
	_, _, ok := jb.TryExtractFrame()
	assert.False(t, ok)
}

func TestJitterBufferedMsReportsResidency(t *testing.T) {
	jb := NewJitterBuffer(time.Hour, 0)
	assert.Equal(t, time.Duration(0), jb.BufferedMs())

	jb.InsertPacket(1, []byte("x"))
	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, jb.BufferedMs(), 8*time.Millisecond)
}
