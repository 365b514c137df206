package video

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Scaler resizes YUV420 frames with bilinear interpolation. The luma
// plane is sampled at full resolution and each chroma plane at half, so
// the 2x2 subsampling relationship of the input is preserved in the
// output. Not safe for concurrent use; each pipeline stage owns its own
// Scaler.
type Scaler struct{}

// NewScaler creates a Scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// IsScalingRequired reports whether source and target dimensions differ.
func (s *Scaler) IsScalingRequired(srcWidth, srcHeight, dstWidth, dstHeight uint16) bool {
	return srcWidth != dstWidth || srcHeight != dstHeight
}

// GetScaleFactors returns the per-axis source-to-target ratios.
func (s *Scaler) GetScaleFactors(srcWidth, srcHeight, dstWidth, dstHeight uint16) (xFactor, yFactor float64) {
	return float64(dstWidth) / float64(srcWidth), float64(dstHeight) / float64(srcHeight)
}

// Scale resizes frame to targetWidth x targetHeight, returning a new
// frame. Same-dimension calls return a deep copy so the caller may
// mutate the result without aliasing the input.
func (s *Scaler) Scale(frame *VideoFrame, targetWidth, targetHeight uint16) (*VideoFrame, error) {
	if frame == nil {
		return nil, fmt.Errorf("frame cannot be nil")
	}
	if targetWidth == 0 || targetHeight == 0 {
		return nil, fmt.Errorf("invalid target dimensions: %dx%d", targetWidth, targetHeight)
	}
	if frame.Width == 0 || frame.Height == 0 {
		return nil, fmt.Errorf("invalid source dimensions: %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Y) < int(frame.Width)*int(frame.Height) {
		return nil, fmt.Errorf("Y plane too small for %dx%d", frame.Width, frame.Height)
	}

	if !s.IsScalingRequired(frame.Width, frame.Height, targetWidth, targetHeight) {
		return cloneFrame(frame), nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Scaler.Scale",
		"from":     fmt.Sprintf("%dx%d", frame.Width, frame.Height),
		"to":       fmt.Sprintf("%dx%d", targetWidth, targetHeight),
	}).Debug("scaling frame")

	out := newFrame(targetWidth, targetHeight)
	resamplePlane(frame.Y, int(frame.Width), int(frame.Height), frame.YStride,
		out.Y, int(targetWidth), int(targetHeight))
	resamplePlane(frame.U, int(frame.Width)/2, int(frame.Height)/2, frame.UStride,
		out.U, int(targetWidth)/2, int(targetHeight)/2)
	resamplePlane(frame.V, int(frame.Width)/2, int(frame.Height)/2, frame.VStride,
		out.V, int(targetWidth)/2, int(targetHeight)/2)
	return out, nil
}

// newFrame allocates a zeroed YUV420 frame with tight strides.
func newFrame(width, height uint16) *VideoFrame {
	w, h := int(width), int(height)
	return &VideoFrame{
		Width:   width,
		Height:  height,
		YStride: w,
		UStride: w / 2,
		VStride: w / 2,
		Y:       make([]byte, w*h),
		U:       make([]byte, (w/2)*(h/2)),
		V:       make([]byte, (w/2)*(h/2)),
	}
}

// cloneFrame deep-copies a frame, normalizing strides to the plane width.
func cloneFrame(frame *VideoFrame) *VideoFrame {
	out := newFrame(frame.Width, frame.Height)
	copyPlane(frame.Y, frame.YStride, out.Y, out.YStride, int(frame.Width), int(frame.Height))
	copyPlane(frame.U, frame.UStride, out.U, out.UStride, int(frame.Width)/2, int(frame.Height)/2)
	copyPlane(frame.V, frame.VStride, out.V, out.VStride, int(frame.Width)/2, int(frame.Height)/2)
	return out
}

func copyPlane(src []byte, srcStride int, dst []byte, dstStride, width, height int) {
	if srcStride <= 0 {
		srcStride = width
	}
	for row := 0; row < height; row++ {
		copy(dst[row*dstStride:row*dstStride+width], src[row*srcStride:])
	}
}

// resamplePlane bilinearly resamples one plane. The destination stride
// equals dstWidth; the source stride falls back to srcWidth when the
// frame carries none.
func resamplePlane(src []byte, srcWidth, srcHeight, srcStride int, dst []byte, dstWidth, dstHeight int) {
	if srcStride <= 0 {
		srcStride = srcWidth
	}
	if srcWidth <= 0 || srcHeight <= 0 || dstWidth <= 0 || dstHeight <= 0 {
		return
	}

	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for dy := 0; dy < dstHeight; dy++ {
		sy := float64(dy) * yRatio
		y0 := int(sy)
		y1 := y0 + 1
		if y1 >= srcHeight {
			y1 = srcHeight - 1
		}
		fy := sy - float64(y0)

		for dx := 0; dx < dstWidth; dx++ {
			sx := float64(dx) * xRatio
			x0 := int(sx)
			x1 := x0 + 1
			if x1 >= srcWidth {
				x1 = srcWidth - 1
			}
			fx := sx - float64(x0)

			tl := float64(src[y0*srcStride+x0])
			tr := float64(src[y0*srcStride+x1])
			bl := float64(src[y1*srcStride+x0])
			br := float64(src[y1*srcStride+x1])

			top := tl + (tr-tl)*fx
			bottom := bl + (br-bl)*fx
			dst[dy*dstWidth+dx] = byte(top + (bottom-top)*fy + 0.5)
		}
	}
}
