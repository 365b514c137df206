package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/go-deskstream/deskstream/capture"
	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturePipelineDeliversEncodedFrames(t *testing.T) {
	capturer := capture.NewPatternCapturer()
	converter := video.NewColorConverter(64, 48)
	encoder := video.NewSoftwareEncoder()
	require.True(t, encoder.Initialize(video.EncoderConfig{
		Width:     64,
		Height:    48,
		Framerate: 30,
		CodecID:   video.CodecH264,
		BitRate:   256000,
	}).IsOk())

	var mu sync.Mutex
	var received int
	var sawMarker bool
	done := make(chan struct{}, 8)

	sink := func(payload []byte, ts90k uint32, markerFlag bool) errs.Void {
		mu.Lock()
		received++
		if markerFlag {
			sawMarker = true
		}
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return errs.OkVoid()
	}

	p := NewCapturePipeline(capturer, converter, encoder, sink)
	require.True(t, p.Start(capture.Config{TargetFPS: 30}).IsOk())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-deadline:
			t.Fatal("timed out waiting for encoded frames")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, received, 3)
	assert.True(t, sawMarker, "every sent packet is its frame's only packet, so marker is always set")
}

func TestCapturePipelineRejectsDoubleStart(t *testing.T) {
	capturer := capture.NewPatternCapturer()
	converter := video.NewColorConverter(32, 24)
	encoder := video.NewSoftwareEncoder()
	require.True(t, encoder.Initialize(video.EncoderConfig{
		Width: 32, Height: 24, Framerate: 30, CodecID: video.CodecH264, BitRate: 128000,
	}).IsOk())

	p := NewCapturePipeline(capturer, converter, encoder, func([]byte, uint32, bool) errs.Void { return errs.OkVoid() })
	require.True(t, p.Start(capture.Config{TargetFPS: 30}).IsOk())
	defer p.Stop()

	assert.True(t, p.Start(capture.Config{TargetFPS: 30}).IsErr())
}

func TestCapturePipelinePauseStopsDelivery(t *testing.T) {
	capturer := capture.NewPatternCapturer()
	converter := video.NewColorConverter(32, 24)
	encoder := video.NewSoftwareEncoder()
	require.True(t, encoder.Initialize(video.EncoderConfig{
		Width: 32, Height: 24, Framerate: 30, CodecID: video.CodecH264, BitRate: 128000,
	}).IsOk())

	var count int
	var mu sync.Mutex
	p := NewCapturePipeline(capturer, converter, encoder, func([]byte, uint32, bool) errs.Void {
		mu.Lock()
		count++
		mu.Unlock()
		return errs.OkVoid()
	})
	require.True(t, p.Start(capture.Config{TargetFPS: 30}).IsOk())
	defer p.Stop()

	time.Sleep(50 * time.Millisecond)
	require.True(t, p.Pause())
	// Let any already-queued frame finish draining through encodeLoop
	// before taking the baseline; Pause only stops new captures.
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	atPause := count
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	afterPause := count
	mu.Unlock()
	assert.Equal(t, atPause, afterPause)

	require.True(t, p.Resume())
}

