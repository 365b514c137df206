package render

import (
	"testing"

	"github.com/go-deskstream/deskstream/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(width, height uint16, y, u, v byte) *video.VideoFrame {
	frame := &video.VideoFrame{Width: width, Height: height}
	frame.Y = make([]byte, int(width)*int(height))
	frame.U = make([]byte, int(width)*int(height)/4)
	frame.V = make([]byte, int(width)*int(height)/4)
	for i := range frame.Y {
		frame.Y[i] = y
	}
	for i := range frame.U {
		frame.U[i] = u
		frame.V[i] = v
	}
	return frame
}

func TestPortableRendererRendersMatchingFrame(t *testing.T) {
	r := NewPortableRenderer()
	require.True(t, r.Initialize(Config{Width: 4, Height: 4}).IsOk())

	res := r.Render(solidFrame(4, 4, 235, 128, 128))
	require.True(t, res.IsOk())
	assert.Equal(t, uint64(1), r.Stats().FramesRendered)
}

func TestPortableRendererDropsMismatchedFrame(t *testing.T) {
	r := NewPortableRenderer()
	require.True(t, r.Initialize(Config{Width: 4, Height: 4}).IsOk())

	res := r.Render(solidFrame(8, 8, 0, 128, 128))
	assert.True(t, res.IsErr())
	assert.Equal(t, uint64(1), r.Stats().FramesDropped)
}

func TestPortableRendererNeverZeroCopy(t *testing.T) {
	r := NewPortableRenderer()
	assert.False(t, r.SupportsZeroCopy())
}

func TestPortableRendererClear(t *testing.T) {
	r := NewPortableRenderer()
	require.True(t, r.Initialize(Config{Width: 2, Height: 2}).IsOk())
	assert.True(t, r.Clear().IsOk())
}

func TestPortableRendererOnResize(t *testing.T) {
	r := NewPortableRenderer()
	require.True(t, r.Initialize(Config{Width: 2, Height: 2}).IsOk())
	require.True(t, r.OnResize(8, 6).IsOk())

	res := r.Render(solidFrame(8, 6, 100, 128, 128))
	assert.True(t, res.IsOk())
}
