package render

import (
	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/video"
)

// Config carries the knobs a VideoRenderer is initialized with: the
// window/surface handle to present into, the expected input pixel
// format, vsync, and an optional hardware-decoder context for
// zero-copy presentation.
type Config struct {
	WindowHandle  uintptr
	Width, Height int
	InputFormat   video.PixelFormat
	VSync         bool
	// HWContext, when non-nil, is the decoder's hardware device/context
	// (see video.VideoDecoder.HWContext). A D3D11Renderer adopts it
	// instead of creating its own device; PortableRenderer ignores it.
	HWContext any
}

// Stats reports running render counters.
type Stats struct {
	FramesRendered  uint64
	FramesDropped   uint64
	AverageRenderMs float64
	FPS             float64
}

// VideoRenderer consumes a decoded frame and presents it on a window.
// A hardware-accelerated back-end may additionally support zero-copy
// presentation straight from the decoder's device.
type VideoRenderer interface {
	Initialize(config Config) errs.Void
	Render(frame *video.VideoFrame) errs.Void
	Clear() errs.Void
	OnResize(width, height int) errs.Void
	Stats() Stats
	SupportsZeroCopy() bool
}
