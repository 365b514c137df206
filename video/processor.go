package video

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Encoder is the software encoding primitive Processor drives. It is
// intentionally narrow (encode one frame to bytes, adjust bit rate);
// the richer VideoEncoder contract in encoder.go wraps this plus
// scaling/stats/keyframe bookkeeping.
type Encoder interface {
	Encode(frame *VideoFrame) ([]byte, error)
	SetBitRate(bitRate uint32) error
	Close() error
}

// VideoFrame is a planar YUV420 frame passed between pipeline stages.
// Strides are in bytes; a zero stride means the plane is tightly packed.
type VideoFrame struct {
	Width   uint16
	Height  uint16
	Y       []byte
	U       []byte
	V       []byte
	YStride int
	UStride int
	VStride int
}

// planeHeaderSize is the [width:2][height:2] prefix SimpleVP8Encoder
// puts in front of the three planes.
const planeHeaderSize = 4

// SimpleVP8Encoder is a software encoder that packs YUV420 planes into
// a length-prefixed byte stream. It stands in for a real VP8 bitstream:
// with no cross-platform pure-Go VP8/H.264 bitstream library available,
// the wire format is a direct plane dump rather than a real codec.
type SimpleVP8Encoder struct {
	bitRate uint32
	width   uint16
	height  uint16
}

// NewSimpleVP8Encoder creates an encoder fixed to width x height.
func NewSimpleVP8Encoder(width, height uint16, bitRate uint32) *SimpleVP8Encoder {
	return &SimpleVP8Encoder{bitRate: bitRate, width: width, height: height}
}

// Encode packs frame's planes behind a little-endian dimension prefix.
// The frame must already match the encoder's configured size; the
// Processor scales before encoding.
func (e *SimpleVP8Encoder) Encode(frame *VideoFrame) ([]byte, error) {
	if frame.Width != e.width || frame.Height != e.height {
		return nil, fmt.Errorf("frame size mismatch: expected %dx%d, got %dx%d",
			e.width, e.height, frame.Width, frame.Height)
	}

	data := make([]byte, planeHeaderSize+len(frame.Y)+len(frame.U)+len(frame.V))
	binary.LittleEndian.PutUint16(data[0:2], frame.Width)
	binary.LittleEndian.PutUint16(data[2:4], frame.Height)

	n := planeHeaderSize
	n += copy(data[n:], frame.Y)
	n += copy(data[n:], frame.U)
	copy(data[n:], frame.V)
	return data, nil
}

// SetBitRate updates the target bit rate.
func (e *SimpleVP8Encoder) SetBitRate(bitRate uint32) error {
	e.bitRate = bitRate
	return nil
}

// Close is a no-op; SimpleVP8Encoder owns no external resources.
func (e *SimpleVP8Encoder) Close() error { return nil }

// Processor manages scaling and software encode/decode for a single
// video track. It holds no RTP state.
type Processor struct {
	encoder Encoder
	scaler  *Scaler
	bitRate uint32
	width   uint16
	height  uint16
}

// NewProcessor creates a processor at 640x480 and 512kbps.
func NewProcessor() *Processor {
	return NewProcessorWithSettings(640, 480, 512000)
}

// NewProcessorWithSettings creates a processor at the given resolution
// and bit rate.
func NewProcessorWithSettings(width, height uint16, bitRate uint32) *Processor {
	logrus.WithFields(logrus.Fields{
		"function": "NewProcessorWithSettings",
		"width":    width,
		"height":   height,
		"bit_rate": bitRate,
	}).Info("creating video processor")

	return &Processor{
		encoder: NewSimpleVP8Encoder(width, height, bitRate),
		scaler:  NewScaler(),
		bitRate: bitRate,
		width:   width,
		height:  height,
	}
}

// EncodeFrame scales frame to the processor's configured size if needed
// and encodes it, returning the byte payload.
func (p *Processor) EncodeFrame(frame *VideoFrame) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("video frame cannot be nil")
	}
	if err := checkPlaneSizes(frame); err != nil {
		return nil, err
	}

	input := frame
	if p.scaler.IsScalingRequired(frame.Width, frame.Height, p.width, p.height) {
		scaled, err := p.scaler.Scale(frame, p.width, p.height)
		if err != nil {
			return nil, fmt.Errorf("scaling failed: %v", err)
		}
		input = scaled
	}

	return p.encoder.Encode(input)
}

// checkPlaneSizes verifies each plane covers the frame's dimensions.
func checkPlaneSizes(frame *VideoFrame) error {
	if frame.Width == 0 || frame.Height == 0 {
		return fmt.Errorf("invalid frame dimensions: %dx%d", frame.Width, frame.Height)
	}
	w, h := int(frame.Width), int(frame.Height)
	if len(frame.Y) < w*h {
		return fmt.Errorf("Y plane too small: got %d, expected %d", len(frame.Y), w*h)
	}
	if chroma := (w / 2) * (h / 2); len(frame.U) < chroma || len(frame.V) < chroma {
		return fmt.Errorf("chroma plane too small: got U=%d V=%d, expected %d",
			len(frame.U), len(frame.V), chroma)
	}
	return nil
}

// DecodeFrame reverses SimpleVP8Encoder's wire format back into a
// VideoFrame.
func (p *Processor) DecodeFrame(data []byte) (*VideoFrame, error) {
	if len(data) < planeHeaderSize {
		return nil, fmt.Errorf("data too short: %d bytes", len(data))
	}

	width := binary.LittleEndian.Uint16(data[0:2])
	height := binary.LittleEndian.Uint16(data[2:4])
	ySize := int(width) * int(height)
	uvSize := ySize / 4
	if want := planeHeaderSize + ySize + 2*uvSize; len(data) != want {
		return nil, fmt.Errorf("invalid data size: expected %d, got %d", want, len(data))
	}

	frame := newFrame(width, height)
	n := planeHeaderSize
	n += copy(frame.Y, data[n:n+ySize])
	n += copy(frame.U, data[n:n+uvSize])
	copy(frame.V, data[n:n+uvSize])
	return frame, nil
}

// SetBitRate updates the target bit rate for encoding.
func (p *Processor) SetBitRate(bitRate uint32) error {
	if bitRate == 0 {
		return fmt.Errorf("bitrate cannot be zero")
	}
	p.bitRate = bitRate
	return p.encoder.SetBitRate(bitRate)
}

// SetFrameSize updates the target frame dimensions and rebuilds the
// encoder to match.
func (p *Processor) SetFrameSize(width, height uint16) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", width, height)
	}
	p.width = width
	p.height = height
	p.encoder = NewSimpleVP8Encoder(width, height, p.bitRate)
	return nil
}

// GetBitRate returns the current bit rate setting.
func (p *Processor) GetBitRate() uint32 { return p.bitRate }

// GetFrameSize returns the current frame dimensions.
func (p *Processor) GetFrameSize() (width, height uint16) { return p.width, p.height }

// Close releases processor resources.
func (p *Processor) Close() error {
	return p.encoder.Close()
}
