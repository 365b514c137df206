package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternCapturerLifecycle(t *testing.T) {
	c := NewPatternCapturer()
	assert.False(t, c.IsInitialized())

	res := c.Initialize(Config{TargetFPS: 30})
	require.True(t, res.IsOk())
	assert.True(t, c.IsInitialized())

	w, h := c.Resolution()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestPatternCapturerFirstFrameIsKeyFrame(t *testing.T) {
	c := NewPatternCapturer()
	require.True(t, c.Initialize(Config{}).IsOk())
	require.True(t, c.Start().IsOk())

	frame := c.CaptureFrame()
	require.True(t, frame.IsOk())
	assert.True(t, frame.Value().Meta.KeyFrame)
	c.ReleaseFrame()
}

func TestPatternCapturerRequiresReleaseBeforeNextCapture(t *testing.T) {
	c := NewPatternCapturer()
	require.True(t, c.Initialize(Config{}).IsOk())
	require.True(t, c.Start().IsOk())

	first := c.CaptureFrame()
	require.True(t, first.IsOk())

	second := c.CaptureFrame()
	assert.True(t, second.IsErr())

	c.ReleaseFrame()
	third := c.CaptureFrame()
	assert.True(t, third.IsOk())
}

func TestPatternCapturerForceKeyFrame(t *testing.T) {
	c := NewPatternCapturer()
	require.True(t, c.Initialize(Config{}).IsOk())
	require.True(t, c.Start().IsOk())

	f1 := c.CaptureFrame()
	require.True(t, f1.IsOk())
	c.ReleaseFrame()

	f2 := c.CaptureFrame()
	require.True(t, f2.IsOk())
	assert.False(t, f2.Value().Meta.KeyFrame)
	c.ReleaseFrame()

	c.ForceKeyFrame()
	f3 := c.CaptureFrame()
	require.True(t, f3.IsOk())
	assert.True(t, f3.Value().Meta.KeyFrame)
	c.ReleaseFrame()
}

func TestCaptureFrameNotRunning(t *testing.T) {
	c := NewPatternCapturer()
	require.True(t, c.Initialize(Config{}).IsOk())
	res := c.CaptureFrame()
	assert.True(t, res.IsErr())
}

func TestDedupeAgainstFullScreen(t *testing.T) {
	full := Rect{X: 0, Y: 0, Width: 100, Height: 50}
	assert.Nil(t, dedupeAgainstFullScreen([]Rect{full}, 100, 50))

	partial := Rect{X: 10, Y: 10, Width: 20, Height: 20}
	assert.Equal(t, []Rect{partial}, dedupeAgainstFullScreen([]Rect{partial}, 100, 50))
}
