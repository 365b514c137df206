package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 5; i++ {
		require.True(t, q.Push(i))
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestBoundedQueueNeverExceedsCapacity(t *testing.T) {
	q := New[int](2)
	require.True(t, q.TryPush(1))
	require.True(t, q.TryPush(2))
	assert.False(t, q.TryPush(3))
	assert.Equal(t, 2, q.Size())
	assert.True(t, q.Full())
}

func TestPushBlocksUntilSpaceAvailable(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1))

	var wg sync.WaitGroup
	wg.Add(1)
	accepted := false
	go func() {
		defer wg.Done()
		accepted = q.Push(2)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, q.Size())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	wg.Wait()
	assert.True(t, accepted)
}

func TestStopRejectsNewPushesButDrainsPending(t *testing.T) {
	q := New[int](0)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))

	q.Stop()
	assert.True(t, q.Stopped())
	assert.False(t, q.Push(3))

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestStopWakesBlockedPushers(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1))

	done := make(chan bool, 1)
	go func() {
		done <- q.Push(2)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("push did not wake up after Stop")
	}
}

func TestPushTimeoutExpires(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1))

	start := time.Now()
	accepted := q.PushTimeout(2, 30)
	elapsed := time.Since(start)

	assert.False(t, accepted)
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
}

func TestPopTimeoutExpires(t *testing.T) {
	q := New[int](0)
	_, ok := q.PopTimeout(20)
	assert.False(t, ok)
}

func TestClearWithCleanupInvokesCallback(t *testing.T) {
	q := New[int](0)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))

	var cleaned []int
	q.ClearWithCleanup(func(v int) { cleaned = append(cleaned, v) })

	assert.Equal(t, []int{1, 2}, cleaned)
	assert.True(t, q.Empty())
}

func TestResetReopensStoppedQueue(t *testing.T) {
	q := New[int](0)
	require.True(t, q.Push(1))
	q.Stop()
	q.Reset()

	assert.False(t, q.Stopped())
	assert.True(t, q.Empty())
	assert.True(t, q.Push(2))
}

func TestTryPopOnEmptyQueue(t *testing.T) {
	q := New[int](0)
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestMaxSizeAccessor(t *testing.T) {
	q := New[int](7)
	assert.Equal(t, 7, q.MaxSize())
}
