package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidBGRA(width, height int, b, g, r, a byte) []byte {
	buf := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		buf[i*4+0] = b
		buf[i*4+1] = g
		buf[i*4+2] = r
		buf[i*4+3] = a
	}
	return buf
}

func TestColorConverterSameSizeNoResize(t *testing.T) {
	conv := NewColorConverter(16, 16)
	pixels := solidBGRA(16, 16, 0, 0, 0, 255)

	res := conv.Convert(pixels, 16, 16, 16*4, CaptureBGRA32)
	require.True(t, res.IsOk())
	frame := res.Value()
	assert.Equal(t, uint16(16), frame.Width)
	assert.Equal(t, uint16(16), frame.Height)
	// Pure black should convert to Y=0, U=128, V=128.
	assert.Equal(t, byte(0), frame.Y[0])
	assert.Equal(t, byte(128), frame.U[0])
	assert.Equal(t, byte(128), frame.V[0])
}

func TestColorConverterResizes(t *testing.T) {
	conv := NewColorConverter(8, 8)
	pixels := solidBGRA(16, 16, 10, 20, 30, 255)

	res := conv.Convert(pixels, 16, 16, 16*4, CaptureBGRA32)
	require.True(t, res.IsOk())
	frame := res.Value()
	assert.Equal(t, uint16(8), frame.Width)
	assert.Equal(t, uint16(8), frame.Height)
}

func TestColorConverterRejectsShortBuffer(t *testing.T) {
	conv := NewColorConverter(4, 4)
	res := conv.Convert([]byte{1, 2, 3}, 4, 4, 16, CaptureBGRA32)
	assert.True(t, res.IsErr())
}

func TestColorConverterRGBAvsBGRA(t *testing.T) {
	conv := NewColorConverter(2, 2)
	// Pure red in BGRA (B=0,G=0,R=255) vs pure red in RGBA (R=255,G=0,B=0)
	// must produce the same luma.
	bgra := solidBGRA(2, 2, 0, 0, 255, 255)
	rgba := solidBGRA(2, 2, 255, 0, 0, 255) // reinterpret as R,G,B,A order

	resBGRA := conv.Convert(bgra, 2, 2, 8, CaptureBGRA32)
	resRGBA := conv.Convert(rgba, 2, 2, 8, CaptureRGBA32)
	require.True(t, resBGRA.IsOk())
	require.True(t, resRGBA.IsOk())
	assert.Equal(t, resBGRA.Value().Y[0], resRGBA.Value().Y[0])
}
