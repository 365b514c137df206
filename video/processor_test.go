package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessorDefaults(t *testing.T) {
	p := NewProcessor()
	require.NotNil(t, p)

	w, h := p.GetFrameSize()
	assert.Equal(t, uint16(640), w)
	assert.Equal(t, uint16(480), h)
	assert.Equal(t, uint32(512000), p.GetBitRate())
}

func TestSimpleVP8EncoderWireFormat(t *testing.T) {
	enc := NewSimpleVP8Encoder(4, 2, 256000)
	frame := solidFrame(4, 2, 1, 2, 3)

	data, err := enc.Encode(frame)
	require.NoError(t, err)
	require.Len(t, data, planeHeaderSize+8+2+2)

	assert.Equal(t, []byte{4, 0, 2, 0}, data[:4])
	assert.Equal(t, byte(1), data[4])
	assert.Equal(t, byte(2), data[4+8])
	assert.Equal(t, byte(3), data[4+8+2])
}

func TestSimpleVP8EncoderRejectsSizeMismatch(t *testing.T) {
	enc := NewSimpleVP8Encoder(320, 240, 256000)
	_, err := enc.Encode(solidFrame(640, 480, 0, 0, 0))
	assert.Error(t, err)
}

func TestProcessorEncodeDecodeRoundTrip(t *testing.T) {
	p := NewProcessorWithSettings(16, 16, 256000)
	src := solidFrame(16, 16, 50, 60, 70)

	data, err := p.EncodeFrame(src)
	require.NoError(t, err)

	out, err := p.DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, src.Width, out.Width)
	assert.Equal(t, src.Height, out.Height)
	assert.Equal(t, src.Y, out.Y)
	assert.Equal(t, src.U, out.U)
	assert.Equal(t, src.V, out.V)
}

func TestProcessorScalesOversizedInput(t *testing.T) {
	p := NewProcessorWithSettings(16, 16, 256000)

	data, err := p.EncodeFrame(solidFrame(32, 32, 50, 60, 70))
	require.NoError(t, err)

	out, err := p.DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(16), out.Width)
	assert.Equal(t, uint16(16), out.Height)
	assert.Equal(t, byte(50), out.Y[0])
}

func TestProcessorEncodeRejectsBadFrames(t *testing.T) {
	p := NewProcessorWithSettings(16, 16, 256000)

	_, err := p.EncodeFrame(nil)
	assert.Error(t, err)

	_, err = p.EncodeFrame(&VideoFrame{Width: 0, Height: 16})
	assert.Error(t, err)

	short := solidFrame(16, 16, 0, 0, 0)
	short.Y = short.Y[:8]
	_, err = p.EncodeFrame(short)
	assert.Error(t, err)
}

func TestProcessorDecodeRejectsBadData(t *testing.T) {
	p := NewProcessor()

	_, err := p.DecodeFrame([]byte{1, 2})
	assert.Error(t, err)

	// Header claims 16x16 but carries no plane bytes.
	_, err = p.DecodeFrame([]byte{16, 0, 16, 0})
	assert.Error(t, err)
}

func TestProcessorSetBitRate(t *testing.T) {
	p := NewProcessor()
	require.NoError(t, p.SetBitRate(1_000_000))
	assert.Equal(t, uint32(1_000_000), p.GetBitRate())
	assert.Error(t, p.SetBitRate(0))
}

func TestProcessorSetFrameSize(t *testing.T) {
	p := NewProcessor()
	require.NoError(t, p.SetFrameSize(1280, 720))
	w, h := p.GetFrameSize()
	assert.Equal(t, uint16(1280), w)
	assert.Equal(t, uint16(720), h)

	data, err := p.EncodeFrame(solidFrame(1280, 720, 9, 9, 9))
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	assert.Error(t, p.SetFrameSize(0, 720))
}

func TestProcessorClose(t *testing.T) {
	p := NewProcessor()
	assert.NoError(t, p.Close())
}
