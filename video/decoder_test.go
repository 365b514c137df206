package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftwareEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewSoftwareEncoder()
	require.True(t, enc.Initialize(testEncoderConfig()).IsOk())
	encoded := enc.Encode(testFrame(64, 48))
	require.True(t, encoded.IsOk())

	dec := NewSoftwareDecoder()
	require.True(t, dec.Initialize(DecoderConfig{CodecID: CodecH264}).IsOk())

	res := dec.DecodePacket(encoded.Value())
	require.True(t, res.IsOk())
	assert.Equal(t, uint16(64), res.Value().Width)
	assert.Equal(t, uint16(48), res.Value().Height)
	assert.Equal(t, 64, dec.Width())
	assert.Equal(t, 48, dec.Height())
}

func TestSoftwareDecoderNeverHWContext(t *testing.T) {
	dec := NewSoftwareDecoder()
	require.True(t, dec.Initialize(DecoderConfig{}).IsOk())
	assert.Nil(t, dec.HWContext())
	assert.Equal(t, HWDecoderNone, dec.HWDecoderType())
}

func TestDecodeNotInitialized(t *testing.T) {
	dec := &SoftwareDecoder{processor: NewProcessor()}
	res := dec.Decode([]byte{1, 2, 3}, 0, 0)
	assert.True(t, res.IsErr())
}

func TestCreateVideoDecoderFallsBackToSoftware(t *testing.T) {
	res := CreateVideoDecoder(DecoderConfig{Backend: DecoderHardware, HWDecoderType: HWDecoderCUDA})
	require.True(t, res.IsOk())
	assert.Equal(t, HWDecoderNone, res.Value().HWDecoderType())
}
