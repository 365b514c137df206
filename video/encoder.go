// Package video also hosts the VideoEncoder/VideoDecoder interface
// contracts: a factory-selected hardware-or-software encode/decode
// stage sitting between ColorConverter and MediaTrack. This file
// covers the encoder side.
package video

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// PixelFormat names the pixel layout an encoder expects on input or a
// decoder produces on output.
type PixelFormat int

const (
	PixelFormatYUV420P PixelFormat = iota
	PixelFormatNV12
	PixelFormatBGRA
	PixelFormatRGBA
)

// CodecID names the bitstream format an encoder/decoder produces or
// consumes.
type CodecID int

const (
	CodecH264 CodecID = iota
	CodecHEVC
)

func (c CodecID) String() string {
	if c == CodecHEVC {
		return "HEVC"
	}
	return "H264"
}

// EncoderBackend selects software vs. hardware-accelerated encode.
type EncoderBackend int

const (
	EncoderSoftware EncoderBackend = iota
	EncoderHardware
)

// HWEncoderType names the vendor-specific hardware encode path, when
// EncoderBackend is EncoderHardware. HWEncoderAuto lets the factory
// pick the first one available (never satisfied in this pure-software
// build).
type HWEncoderType int

const (
	HWEncoderAuto HWEncoderType = iota
	HWEncoderNVENC
	HWEncoderQSV
	HWEncoderAMF
	HWEncoderVideoToolbox
	HWEncoderVAAPI
	HWEncoderNone
)

// RateControlMode selects how BitRate/MaxBitRate/CRF/QP are
// interpreted by the encoder.
type RateControlMode int

const (
	RateControlCBR RateControlMode = iota
	RateControlVBR
	RateControlCRF
	RateControlCQP
)

// Preset trades encode speed for quality. PresetLowLatency is an alias
// applications request explicitly for screen-sharing; the software
// reference implementation treats every preset identically (it has no
// internal speed/quality knob of its own) but still records and
// reports whichever the caller asked for.
type Preset int

const (
	PresetFast Preset = iota
	PresetBalanced
	PresetQuality
	PresetLowLatency
)

// Profile selects the bitstream profile advertised to the decoder.
type Profile int

const (
	ProfileBaseline Profile = iota
	ProfileMain
	ProfileHigh
)

// ColorSpace/ColorPrimaries/ColorTRC/ColorRange are signalled in the
// bitstream but not otherwise interpreted by this module's software
// reference codec.
type ColorSpace int
type ColorPrimaries int
type ColorTRC int
type ColorRange int

// EncoderConfig enumerates every knob the encode pipeline recognizes.
type EncoderConfig struct {
	Width, Height int
	Framerate     uint32
	InputFormat   PixelFormat

	Backend       EncoderBackend
	HWEncoderType HWEncoderType
	CodecID       CodecID

	RateControl RateControlMode
	BitRate     uint32
	MaxBitRate  uint32
	CRF         uint32
	QP          uint32

	Preset       Preset
	Profile      Profile
	GOPSize      uint32
	MaxBFrames   uint32
	ZeroLatency  bool
	ThreadCount  int

	ColorSpace     ColorSpace
	ColorPrimaries ColorPrimaries
	ColorTRC       ColorTRC
	ColorRange     ColorRange
}

// EncoderStats reports running encode counters.
type EncoderStats struct {
	FramesEncoded   uint64
	BytesEncoded    uint64
	KeyFramesForced uint64
	LastEncodeTime  time.Duration
}

// VideoEncoder is frame-in, packetized-bitstream-out, with rate-control
// hooks. Implementations buffer at most one pending packet internally
// (drain-on-EAGAIN semantics): Encode may return an empty result while
// an encoder's internal pipeline warms up, and Flush drains whatever
// remains at shutdown or seek.
type VideoEncoder interface {
	Initialize(config EncoderConfig) errs.Void
	Shutdown() errs.Void
	Encode(frame *VideoFrame) errs.Result[*EncodedPacket]
	Flush() []*EncodedPacket
	ForceKeyFrame()
	UpdateBitrate(bps uint32) errs.Void
	Stats() EncoderStats
	IsInitialized() bool
	EncoderType() EncoderBackend
	EncoderName() string
}

// EncodedPacket is a video/audio encoder's output: compressed bytes
// with presentation/decode timestamps, immutable once yielded.
type EncodedPacket struct {
	Data     []byte
	PTS      uint32
	DTS      uint32
	KeyFrame bool
	Duration uint32
}

// SoftwareEncoder adapts Processor (scaling + effects + the
// SimpleVP8Encoder bitstream) to the richer VideoEncoder contract:
// keyframe bookkeeping, stats, and a HW-option surface that is always
// reported unavailable.
type SoftwareEncoder struct {
	mu          sync.Mutex
	config      EncoderConfig
	processor   *Processor
	initialized bool
	forceKey    bool
	frameCount  uint64
	stats       EncoderStats
}

// NewSoftwareEncoder creates an uninitialized software encoder.
func NewSoftwareEncoder() *SoftwareEncoder {
	return &SoftwareEncoder{}
}

// Initialize validates config and builds the underlying Processor.
func (e *SoftwareEncoder) Initialize(config EncoderConfig) errs.Void {
	if config.Width <= 0 || config.Height <= 0 {
		return errs.ErrVoid(errs.KindInvalidParameter, "encoder width/height must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = config
	e.processor = NewProcessorWithSettings(uint16(config.Width), uint16(config.Height), config.BitRate)
	e.initialized = true
	e.forceKey = true

	logrus.WithFields(logrus.Fields{
		"function": "SoftwareEncoder.Initialize",
		"width":    config.Width,
		"height":   config.Height,
		"codec":    config.CodecID.String(),
		"preset":   config.Preset,
	}).Info("software encoder initialized")
	return errs.OkVoid()
}

// Shutdown releases the underlying processor.
func (e *SoftwareEncoder) Shutdown() errs.Void {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processor != nil {
		_ = e.processor.Close()
	}
	e.initialized = false
	return errs.OkVoid()
}

// Encode runs frame through the processor and wraps the result as an
// EncodedPacket, tagging the first frame (and any ForceKeyFrame
// request) as a key frame.
func (e *SoftwareEncoder) Encode(frame *VideoFrame) errs.Result[*EncodedPacket] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return errs.Err[*EncodedPacket](errs.KindEncoderNotFound, "encoder not initialized")
	}

	start := time.Now()
	data, err := e.processor.EncodeFrame(frame)
	if err != nil {
		return errs.Err[*EncodedPacket](errs.KindEncodeFailed, err.Error())
	}

	keyFrame := e.forceKey
	e.forceKey = false
	e.frameCount++
	e.stats.FramesEncoded++
	e.stats.BytesEncoded += uint64(len(data))
	e.stats.LastEncodeTime = time.Since(start)
	if keyFrame {
		e.stats.KeyFramesForced++
	}

	ts := uint32(e.frameCount) * (90000 / maxUint32(e.config.Framerate, 1))
	return errs.Ok(&EncodedPacket{
		Data:     data,
		PTS:      ts,
		DTS:      ts,
		KeyFrame: keyFrame,
		Duration: 90000 / maxUint32(e.config.Framerate, 1),
	})
}

// Flush has nothing buffered to drain: SimpleVP8Encoder is a
// one-in-one-out codec.
func (e *SoftwareEncoder) Flush() []*EncodedPacket { return nil }

// ForceKeyFrame tags the next Encode call's output as a key frame.
func (e *SoftwareEncoder) ForceKeyFrame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forceKey = true
}

// UpdateBitrate forwards to the processor's rate-control knob.
func (e *SoftwareEncoder) UpdateBitrate(bps uint32) errs.Void {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processor == nil {
		return errs.ErrVoid(errs.KindNotInitialized, "encoder not initialized")
	}
	if err := e.processor.SetBitRate(bps); err != nil {
		return errs.ErrVoid(errs.KindInvalidParameter, err.Error())
	}
	e.config.BitRate = bps
	return errs.OkVoid()
}

// Stats returns a snapshot of the running encode counters.
func (e *SoftwareEncoder) Stats() EncoderStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// IsInitialized reports whether Initialize has succeeded.
func (e *SoftwareEncoder) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// EncoderType always reports EncoderSoftware: this implementation has
// no hardware path.
func (e *SoftwareEncoder) EncoderType() EncoderBackend { return EncoderSoftware }

// EncoderName identifies the concrete encoder for logs/diagnostics.
func (e *SoftwareEncoder) EncoderName() string { return "deskstream-software-vp8" }

// CreateVideoEncoder is the encoder factory: it tries a hardware
// encoder first when config.Backend requests one, falling back to
// SoftwareEncoder on any initialization failure and logging the
// fallback. This build carries no vendor SDK bindings (NVENC/QSV/AMF),
// so the hardware branch always falls through; it is kept so the
// factory shape and fallback logging match what a full build would do.
func CreateVideoEncoder(config EncoderConfig) errs.Result[VideoEncoder] {
	if config.Backend == EncoderHardware {
		logrus.WithFields(logrus.Fields{
			"function":        "CreateVideoEncoder",
			"hw_encoder_type": config.HWEncoderType,
		}).Warn("hardware encoder requested but unavailable in this build, falling back to software")
	}

	enc := NewSoftwareEncoder()
	if res := enc.Initialize(config); res.IsErr() {
		return errs.Err[VideoEncoder](res.Code(), fmt.Sprintf("software encoder fallback failed: %s", res.Message()))
	}
	return errs.Ok[VideoEncoder](enc)
}

func maxUint32(v, floor uint32) uint32 {
	if v == 0 {
		return floor
	}
	return v
}
