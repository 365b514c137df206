package render

import (
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/video"
	"github.com/sirupsen/logrus"
)

// PortableRenderer is the software-path VideoRenderer: it converts a
// VideoFrame's YUV420 planes into an owned RGBA framebuffer.
// Config.InputFormat is not consulted; BGRA and NV12 input are not
// handled. It never shares GPU memory with a
// decoder, so SupportsZeroCopy is always false. This is the
// general-purpose 2D path every platform falls back to when no
// hardware renderer is available or requested.
type PortableRenderer struct {
	mu sync.Mutex

	initialized   bool
	width, height int
	framebuffer   []byte // RGBA8888

	stats      Stats
	frameTimes []time.Duration
}

// NewPortableRenderer creates an uninitialized portable renderer.
func NewPortableRenderer() *PortableRenderer {
	return &PortableRenderer{}
}

// Initialize allocates the renderer's framebuffer at config's
// dimensions.
func (r *PortableRenderer) Initialize(config Config) errs.Void {
	if config.Width <= 0 || config.Height <= 0 {
		return errs.ErrVoid(errs.KindInvalidParameter, "renderer width/height must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = config.Width, config.Height
	r.framebuffer = make([]byte, config.Width*config.Height*4)
	r.initialized = true

	logrus.WithFields(logrus.Fields{
		"function": "PortableRenderer.Initialize",
		"width":    config.Width,
		"height":   config.Height,
	}).Info("portable renderer initialized")
	return errs.OkVoid()
}

// Render converts frame's YUV420 planes to RGBA and composites them
// into the owned framebuffer, tracking render-time and frame-rate
// statistics. A frame whose dimensions don't match the renderer's
// configured size is dropped and counted in FramesDropped; per-frame
// mismatches are reported upward, never fatal.
func (r *PortableRenderer) Render(frame *video.VideoFrame) errs.Void {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return errs.ErrVoid(errs.KindNotInitialized, "renderer not initialized")
	}
	if frame == nil {
		return errs.ErrVoid(errs.KindInvalidParameter, "nil frame")
	}
	if int(frame.Width) != r.width || int(frame.Height) != r.height {
		r.stats.FramesDropped++
		return errs.ErrVoid(errs.KindUnsupportedPixelFormat, "frame dimensions do not match renderer configuration")
	}

	start := time.Now()
	yuv420ToRGBA(frame, r.framebuffer)
	elapsed := time.Since(start)

	r.stats.FramesRendered++
	r.frameTimes = append(r.frameTimes, elapsed)
	if len(r.frameTimes) > 60 {
		r.frameTimes = r.frameTimes[len(r.frameTimes)-60:]
	}
	r.recomputeStatsLocked()
	return errs.OkVoid()
}

// Clear resets the framebuffer to opaque black.
func (r *PortableRenderer) Clear() errs.Void {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return errs.ErrVoid(errs.KindNotInitialized, "renderer not initialized")
	}
	for i := range r.framebuffer {
		if i%4 == 3 {
			r.framebuffer[i] = 0xFF
		} else {
			r.framebuffer[i] = 0
		}
	}
	return errs.OkVoid()
}

// OnResize reallocates the framebuffer at the new dimensions.
func (r *PortableRenderer) OnResize(width, height int) errs.Void {
	if width <= 0 || height <= 0 {
		return errs.ErrVoid(errs.KindInvalidParameter, "resize dimensions must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	r.framebuffer = make([]byte, width*height*4)
	return errs.OkVoid()
}

// Stats returns a snapshot of render counters.
func (r *PortableRenderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// SupportsZeroCopy always reports false: the portable path always
// copies into its own framebuffer.
func (r *PortableRenderer) SupportsZeroCopy() bool { return false }

func (r *PortableRenderer) recomputeStatsLocked() {
	if len(r.frameTimes) == 0 {
		return
	}
	var total time.Duration
	for _, d := range r.frameTimes {
		total += d
	}
	avg := total / time.Duration(len(r.frameTimes))
	r.stats.AverageRenderMs = float64(avg.Microseconds()) / 1000.0
	if avg > 0 {
		r.stats.FPS = float64(time.Second) / float64(avg)
	}
}

// yuv420ToRGBA writes frame's YUV420 planes into dst as packed RGBA8888
// using the BT.601 full-range inverse transform.
func yuv420ToRGBA(frame *video.VideoFrame, dst []byte) {
	width, height := int(frame.Width), int(frame.Height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			yv := float64(frame.Y[y*width+x])
			cx, cy := x/2, y/2
			cw := width / 2
			u := float64(frame.U[cy*cw+cx]) - 128
			v := float64(frame.V[cy*cw+cx]) - 128

			r := clamp(yv + 1.402*v)
			g := clamp(yv - 0.344*u - 0.714*v)
			b := clamp(yv + 1.772*u)

			off := (y*width + x) * 4
			dst[off+0] = r
			dst[off+1] = g
			dst[off+2] = b
			dst[off+3] = 0xFF
		}
	}
}

func clamp(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
