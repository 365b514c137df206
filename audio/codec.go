// Package audio provides the Opus wire-contract surface for an audio
// MediaTrack: parameter validation only, no encode/decode.
package audio

import (
	"github.com/go-deskstream/deskstream/errs"
	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

// CodecParams is the negotiated Opus parameter set a MediaTrack's audio
// configuration carries: sample rate, channel count, and the bandwidth
// class pion/opus derives from the sample rate. It is a wire contract
// only; no encoder or decoder lives behind it.
type CodecParams struct {
	SampleRate uint32
	Channels   uint8
	Bandwidth  opus.Bandwidth
}

// supportedSampleRates lists the sample rates Opus recognizes.
var supportedSampleRates = []uint32{8000, 12000, 16000, 24000, 48000}

// bandwidthForSampleRate maps a sample rate to its Opus bandwidth class.
func bandwidthForSampleRate(sampleRate uint32) opus.Bandwidth {
	switch sampleRate {
	case 8000:
		return opus.BandwidthNarrowband
	case 12000:
		return opus.BandwidthMediumband
	case 16000:
		return opus.BandwidthWideband
	case 24000:
		return opus.BandwidthSuperwideband
	default:
		return opus.BandwidthFullband
	}
}

// NewCodecParams builds a CodecParams for the given sample rate and
// channel count, deriving the matching Opus bandwidth.
func NewCodecParams(sampleRate uint32, channels uint8) CodecParams {
	return CodecParams{
		SampleRate: sampleRate,
		Channels:   channels,
		Bandwidth:  bandwidthForSampleRate(sampleRate),
	}
}

// Validate checks that the parameter set is one Opus actually supports:
// a recognized sample rate, at least one channel, and a bandwidth that
// matches what that sample rate maps to.
func (p CodecParams) Validate() errs.Void {
	supported := false
	for _, rate := range supportedSampleRates {
		if p.SampleRate == rate {
			supported = true
			break
		}
	}
	if !supported {
		logrus.WithFields(logrus.Fields{
			"function":    "CodecParams.Validate",
			"sample_rate": p.SampleRate,
		}).Warn("unsupported opus sample rate")
		return errs.ErrVoid(errs.KindInvalidArgument, "unsupported opus sample rate")
	}

	if p.Channels == 0 || p.Channels > 2 {
		return errs.ErrVoid(errs.KindInvalidArgument, "opus supports only mono or stereo")
	}

	if p.Bandwidth != bandwidthForSampleRate(p.SampleRate) {
		return errs.ErrVoid(errs.KindInvalidArgument, "bandwidth does not match sample rate")
	}

	return errs.OkVoid()
}

// ValidateFrameDuration checks that frameSamples corresponds to one of
// Opus's fixed frame durations (2.5, 5, 10, 20, 40, or 60 ms) at this
// sample rate.
func (p CodecParams) ValidateFrameDuration(frameSamples int) errs.Void {
	durationMs := float64(frameSamples) * 1000.0 / float64(p.SampleRate)
	for _, valid := range []float64{2.5, 5, 10, 20, 40, 60} {
		if durationMs == valid {
			return errs.OkVoid()
		}
	}
	return errs.ErrVoid(errs.KindInvalidArgument, "frame duration is not a valid Opus frame size")
}
