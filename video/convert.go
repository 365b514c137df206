package video

import (
	"fmt"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// CapturePixelFormat names the pixel layout ColorConverter accepts on
// input, matching the capture package's Frame.Format without this
// package importing capture (ColorConverter only needs the tag, not
// the lease machinery around it).
type CapturePixelFormat int

const (
	CaptureBGRA32 CapturePixelFormat = iota
	CaptureRGBA32
)

// ColorConverter adapts a capturer's packed-BGRA/RGBA frame to the
// planar YUV420 a VideoEncoder expects, resizing in the same pass when
// the encoder's configured dimensions differ from the source. Pure CPU
// path: a pixel-format conversion stage followed by Scaler's bilinear
// resize in the same pass.
type ColorConverter struct {
	targetWidth, targetHeight uint16
	scaler                    *Scaler
}

// NewColorConverter creates a converter that normalizes every frame to
// targetWidth x targetHeight YUV420.
func NewColorConverter(targetWidth, targetHeight uint16) *ColorConverter {
	logrus.WithFields(logrus.Fields{
		"function": "NewColorConverter",
		"width":    targetWidth,
		"height":   targetHeight,
	}).Info("creating color converter")
	return &ColorConverter{targetWidth: targetWidth, targetHeight: targetHeight, scaler: NewScaler()}
}

// Convert turns a packed BGRA32/RGBA32 buffer (stride-aware, as
// delivered by ScreenCapturer) into a YUV420 VideoFrame at the
// converter's target dimensions.
func (c *ColorConverter) Convert(pixels []byte, width, height, stride int, format CapturePixelFormat) errs.Result[*VideoFrame] {
	if width <= 0 || height <= 0 {
		return errs.Err[*VideoFrame](errs.KindInvalidParameter, "invalid source dimensions")
	}
	if stride < width*4 {
		return errs.Err[*VideoFrame](errs.KindInvalidParameter, "stride too small for BGRA/RGBA data")
	}
	if len(pixels) < stride*height {
		return errs.Err[*VideoFrame](errs.KindInvalidParameter, "pixel buffer smaller than stride*height")
	}

	yuv := packedToYUV420(pixels, width, height, stride, format)

	if int(c.targetWidth) == width && int(c.targetHeight) == height {
		return errs.Ok(yuv)
	}
	if !c.scaler.IsScalingRequired(uint16(width), uint16(height), c.targetWidth, c.targetHeight) {
		return errs.Ok(yuv)
	}

	scaled, err := c.scaler.Scale(yuv, c.targetWidth, c.targetHeight)
	if err != nil {
		return errs.Err[*VideoFrame](errs.KindInvalidParameter, fmt.Sprintf("resize failed: %v", err))
	}
	return errs.Ok(scaled)
}

// packedToYUV420 converts BGRA32/RGBA32 to planar YUV420 using the
// ITU-R BT.601 full-range coefficients, 2x2 chroma subsampling by
// averaging.
func packedToYUV420(pixels []byte, width, height, stride int, format CapturePixelFormat) *VideoFrame {
	frame := &VideoFrame{
		Width:   uint16(width),
		Height:  uint16(height),
		YStride: width,
		UStride: width / 2,
		VStride: width / 2,
		Y:       make([]byte, width*height),
		U:       make([]byte, (width/2)*(height/2)),
		V:       make([]byte, (width/2)*(height/2)),
	}

	rOff, bOff := 2, 0
	if format == CaptureRGBA32 {
		rOff, bOff = 0, 2
	}

	for y := 0; y < height; y++ {
		row := y * stride
		for x := 0; x < width; x++ {
			px := row + x*4
			r, g, b := pixels[px+rOff], pixels[px+1], pixels[px+bOff]
			frame.Y[y*width+x] = rgbToY(r, g, b)
		}
	}

	cw, ch := width/2, height/2
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var rSum, gSum, bSum int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					px := (cy*2+dy)*stride + (cx*2+dx)*4
					rSum += int(pixels[px+rOff])
					gSum += int(pixels[px+1])
					bSum += int(pixels[px+bOff])
				}
			}
			r, g, b := byte(rSum/4), byte(gSum/4), byte(bSum/4)
			u, v := rgbToUV(r, g, b)
			frame.U[cy*cw+cx] = u
			frame.V[cy*cw+cx] = v
		}
	}

	return frame
}

func rgbToY(r, g, b byte) byte {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return clampByte(y)
}

func rgbToUV(r, g, b byte) (byte, byte) {
	u := -0.169*float64(r) - 0.331*float64(g) + 0.5*float64(b) + 128
	v := 0.5*float64(r) - 0.419*float64(g) - 0.081*float64(b) + 128
	return clampByte(u), clampByte(v)
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
