package render

import (
	"sync"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/video"
	"github.com/sirupsen/logrus"
)

// d3d11Device is the borrowed-handle shape a D3D11Renderer adopts from
// a hardware decoder's HWContext: the decoder owns the device, the
// renderer holds a non-owning reference for the pipeline's lifetime.
// This build has no cgo binding to real D3D11, so the device is a named
// placeholder the zero-copy path validates against rather than a live
// COM pointer.
type d3d11Device struct {
	Name string
}

// D3D11Renderer is the Windows-only, zero-copy-capable VideoRenderer
// back-end, as a stub. Initialize adopts a *d3d11Device supplied in
// Config.HWContext (the zero-copy case) or creates its own placeholder
// device. No Direct3D calls are bound: Render copies no decoded surface
// and uploads no pixels on either path. The type models the
// device-ownership decision, so SupportsZeroCopy reports what a real
// binding would; its stats track only FramesRendered and FramesDropped
// (AverageRenderMs and FPS stay zero).
type D3D11Renderer struct {
	mu sync.Mutex

	initialized   bool
	width, height int
	device        *d3d11Device
	adoptedDevice bool

	stats Stats
}

// NewD3D11Renderer creates an uninitialized D3D11 renderer.
func NewD3D11Renderer() *D3D11Renderer {
	return &D3D11Renderer{}
}

// Initialize adopts config.HWContext's device when present and valid;
// otherwise it creates its own placeholder device, matching the
// invariant that "if hw_context supplies a device, the renderer adopts
// it (no separate device creation)".
func (r *D3D11Renderer) Initialize(config Config) errs.Void {
	if config.Width <= 0 || config.Height <= 0 {
		return errs.ErrVoid(errs.KindInvalidParameter, "renderer width/height must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = config.Width, config.Height

	if dev, ok := config.HWContext.(*d3d11Device); ok && dev != nil {
		r.device = dev
		r.adoptedDevice = true
		logrus.WithFields(logrus.Fields{
			"function": "D3D11Renderer.Initialize",
			"device":   dev.Name,
		}).Info("adopted hardware decoder's D3D11 device for zero-copy")
	} else {
		r.device = &d3d11Device{Name: "d3d11-renderer-own-device"}
		r.adoptedDevice = false
	}

	r.initialized = true
	return errs.OkVoid()
}

// Render checks frame against the configured size and counts it as
// rendered or dropped. It does no pixel work on either the adopted-device
// or the own-device path.
func (r *D3D11Renderer) Render(frame *video.VideoFrame) errs.Void {
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

	r.stats.FramesRendered++
	return errs.OkVoid()
}

// Clear is a no-op placeholder for a real swap-chain clear call.
func (r *D3D11Renderer) Clear() errs.Void {
	if !r.initialized {
		return errs.ErrVoid(errs.KindNotInitialized, "renderer not initialized")
	}
	return errs.OkVoid()
}

// OnResize updates the renderer's target dimensions. A real
// implementation would also resize the swap chain's back buffer here.
func (r *D3D11Renderer) OnResize(width, height int) errs.Void {
	if width <= 0 || height <= 0 {
		return errs.ErrVoid(errs.KindInvalidParameter, "resize dimensions must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	return errs.OkVoid()
}

// Stats returns a snapshot of render counters.
func (r *D3D11Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// SupportsZeroCopy reports whether Initialize adopted a shared
// hardware device rather than creating its own.
func (r *D3D11Renderer) SupportsZeroCopy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adoptedDevice
}

// NewHardwareDeviceHandle wraps name as the opaque device handle a
// hardware VideoDecoder's HWContext would return, for tests and
// sessions that want to exercise the zero-copy adoption path without a
// real decoder behind it.
func NewHardwareDeviceHandle(name string) any {
	return &d3d11Device{Name: name}
}
