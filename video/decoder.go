package video

import (
	"fmt"
	"sync"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// DecoderBackend selects software vs. hardware-accelerated decode.
type DecoderBackend int

const (
	DecoderSoftware DecoderBackend = iota
	DecoderHardware
)

// HWDecoderType names the vendor/API-specific hardware decode surface
// negotiated through the codec library's format-selection callback.
type HWDecoderType int

const (
	HWDecoderNone HWDecoderType = iota
	HWDecoderD3D11VA
	HWDecoderDXVA2
	HWDecoderCUDA
	HWDecoderVAAPI
	HWDecoderVDPAU
	HWDecoderVideoToolbox
	HWDecoderQSV
)

// DecoderConfig carries the knobs a VideoDecoder is initialized with.
type DecoderConfig struct {
	CodecID       CodecID
	Backend       DecoderBackend
	HWDecoderType HWDecoderType
}

// VideoDecoder is packet-in, frame-out, optionally producing
// hardware-surface handles. Decode, like Encode, drains on EAGAIN: a
// call may legitimately return no frame while the internal pipeline
// fills, and Flush drains whatever remains (e.g. at seek or shutdown).
type VideoDecoder interface {
	Initialize(config DecoderConfig) errs.Void
	Shutdown() errs.Void
	Decode(data []byte, pts, dts uint32) errs.Result[*VideoFrame]
	DecodePacket(pkt *EncodedPacket) errs.Result[*VideoFrame]
	Flush() []*VideoFrame
	FlushBuffers()
	HWDecoderType() HWDecoderType
	Width() int
	Height() int
	PixelFormat() PixelFormat
	CodecName() string
	// HWContext returns the hardware device/context backing this
	// decoder's surfaces, for a VideoRenderer to adopt for zero-copy
	// presentation. The software decoder always returns nil.
	HWContext() any
}

// SoftwareDecoder reverses SoftwareEncoder's SimpleVP8Encoder wire
// format via Processor.DecodeFrame. It never produces a hardware
// surface: HWContext always returns nil, and the renderer must fall
// back to its copy-through path.
type SoftwareDecoder struct {
	mu          sync.Mutex
	config      DecoderConfig
	processor   *Processor
	initialized bool
	width       int
	height      int
}

// NewSoftwareDecoder creates an uninitialized software decoder.
func NewSoftwareDecoder() *SoftwareDecoder {
	return &SoftwareDecoder{processor: NewProcessor()}
}

// Initialize records config. The decoder learns frame dimensions from
// the first decoded payload (SimpleVP8Encoder's wire format is
// self-describing), so no width/height is required up front.
func (d *SoftwareDecoder) Initialize(config DecoderConfig) errs.Void {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = config
	d.initialized = true

	logrus.WithFields(logrus.Fields{
		"function": "SoftwareDecoder.Initialize",
		"codec":    config.CodecID.String(),
	}).Info("software decoder initialized")
	return errs.OkVoid()
}

// Shutdown releases the underlying processor.
func (d *SoftwareDecoder) Shutdown() errs.Void {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.processor != nil {
		_ = d.processor.Close()
	}
	d.initialized = false
	return errs.OkVoid()
}

// Decode parses data and returns the reconstructed frame.
func (d *SoftwareDecoder) Decode(data []byte, pts, dts uint32) errs.Result[*VideoFrame] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return errs.Err[*VideoFrame](errs.KindDecoderNotFound, "decoder not initialized")
	}

	frame, err := d.processor.DecodeFrame(data)
	if err != nil {
		return errs.Err[*VideoFrame](errs.KindDecodeFailed, err.Error())
	}
	d.width, d.height = int(frame.Width), int(frame.Height)
	return errs.Ok(frame)
}

// DecodePacket is the EncodedPacket-typed convenience form of Decode.
func (d *SoftwareDecoder) DecodePacket(pkt *EncodedPacket) errs.Result[*VideoFrame] {
	if pkt == nil {
		return errs.Err[*VideoFrame](errs.KindInvalidParameter, "nil packet")
	}
	return d.Decode(pkt.Data, pkt.PTS, pkt.DTS)
}

// Flush has nothing buffered: the software codec is one-in-one-out.
func (d *SoftwareDecoder) Flush() []*VideoFrame { return nil }

// FlushBuffers is a no-op for the same reason.
func (d *SoftwareDecoder) FlushBuffers() {}

// HWDecoderType always reports HWDecoderNone.
func (d *SoftwareDecoder) HWDecoderType() HWDecoderType { return HWDecoderNone }

// Width returns the last-decoded frame's width.
func (d *SoftwareDecoder) Width() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width
}

// Height returns the last-decoded frame's height.
func (d *SoftwareDecoder) Height() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.height
}

// PixelFormat always reports YUV420P: Processor.DecodeFrame always
// reconstructs YUV420 planes.
func (d *SoftwareDecoder) PixelFormat() PixelFormat { return PixelFormatYUV420P }

// CodecName identifies the concrete decoder for logs/diagnostics.
func (d *SoftwareDecoder) CodecName() string { return "deskstream-software-vp8" }

// HWContext always returns nil: this decoder never produces a hardware
// surface for the renderer to share.
func (d *SoftwareDecoder) HWContext() any { return nil }

// CreateVideoDecoder mirrors CreateVideoEncoder's hardware-then-software
// fallback shape. No vendor decode API is wired in this build, so the
// hardware branch always falls through to software, logging the
// fallback.
func CreateVideoDecoder(config DecoderConfig) errs.Result[VideoDecoder] {
	if config.Backend == DecoderHardware {
		logrus.WithFields(logrus.Fields{
			"function":        "CreateVideoDecoder",
			"hw_decoder_type": config.HWDecoderType,
		}).Warn("hardware decoder requested but unavailable in this build, falling back to software")
	}

	dec := NewSoftwareDecoder()
	if res := dec.Initialize(config); res.IsErr() {
		return errs.Err[VideoDecoder](res.Code(), fmt.Sprintf("software decoder fallback failed: %s", res.Message()))
	}
	return errs.Ok[VideoDecoder](dec)
}
