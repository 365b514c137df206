package capture

import (
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/sirupsen/logrus"
)

// PatternCapturer is a dependency-free ScreenCapturer that synthesizes
// an animated BGRA32 test pattern instead of reading real display
// memory. It honors the full lease/dirty-rect/key-frame contract so
// the rest of the pipeline (ColorConverter, VideoEncoder, MediaTrack)
// can be exercised without an OS-specific capture back-end, the same
// way the transport tests exercise RTP framing against synthetic
// payloads rather than a live encoder.
type PatternCapturer struct {
	mu sync.Mutex

	config      Config
	initialized bool
	running     bool

	width, height int
	pixels        []byte
	leased        bool

	frameCount    uint64
	forceKey      bool
	lastFrameTime time.Time
	currentFPS    float64
}

// NewPatternCapturer creates an uninitialized capturer.
func NewPatternCapturer() *PatternCapturer {
	return &PatternCapturer{}
}

// Initialize records the configuration. Resolution is fixed at a
// standard 1280x720 canvas; real back-ends would query the selected
// output's current mode here.
func (p *PatternCapturer) Initialize(config Config) errs.Void {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.config = config
	p.width, p.height = 1280, 720
	p.pixels = make([]byte, p.width*p.height*4)
	p.initialized = true

	logrus.WithFields(logrus.Fields{
		"function":     "PatternCapturer.Initialize",
		"output_index": config.OutputIndex,
		"target_fps":   config.TargetFPS,
	}).Info("capturer initialized")
	return errs.OkVoid()
}

// Start begins producing frames; the first CaptureFrame after Start
// is always a key frame.
func (p *PatternCapturer) Start() errs.Void {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return errs.ErrVoid(errs.KindCaptureNotInitialized, "capturer not initialized")
	}
	p.running = true
	p.frameCount = 0
	p.forceKey = true
	return errs.OkVoid()
}

// Stop halts frame production.
func (p *PatternCapturer) Stop() errs.Void {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return errs.OkVoid()
}

// ForceKeyFrame marks the next captured frame as a key frame.
func (p *PatternCapturer) ForceKeyFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forceKey = true
}

// CaptureFrame renders the next animation step into the capturer's
// owned buffer and returns a lease on it. Callers must call
// ReleaseFrame before the next CaptureFrame.
func (p *PatternCapturer) CaptureFrame() errs.Result[Frame] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return errs.Err[Frame](errs.KindCaptureNotInitialized, "capturer not running")
	}
	if p.leased {
		return errs.Err[Frame](errs.KindCaptureFrameUnavailable, "previous frame not released")
	}

	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		if dt := now.Sub(p.lastFrameTime).Seconds(); dt > 0 {
			p.currentFPS = 1.0 / dt
		}
	}
	p.lastFrameTime = now

	dirty := p.paintFrame()
	keyFrame := p.forceKey
	p.forceKey = false
	p.frameCount++
	p.leased = true

	dirtyRects := dedupeAgainstFullScreen([]Rect{dirty}, p.width, p.height)
	ratio := float64(dirty.Width*dirty.Height) / float64(p.width*p.height)

	return errs.Ok(Frame{
		Width:  p.width,
		Height: p.height,
		Stride: p.width * 4,
		Format: PixelFormatBGRA32,
		Pixels: p.pixels,
		Meta: FrameMetadata{
			DirtyRects:    dirtyRects,
			KeyFrame:      keyFrame,
			SkippedFrames: 0,
			DirtyRatio:    ratio,
		},
	})
}

// ReleaseFrame ends the current lease, permitting the next
// CaptureFrame to proceed.
func (p *PatternCapturer) ReleaseFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leased = false
}

// Resolution reports the capturer's fixed output size.
func (p *PatternCapturer) Resolution() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// PixelFormat reports the format pixels are delivered in.
func (p *PatternCapturer) PixelFormat() PixelFormat { return PixelFormatBGRA32 }

// CurrentFPS reports the measured inter-frame rate.
func (p *PatternCapturer) CurrentFPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentFPS
}

// IsInitialized reports whether Initialize has succeeded.
func (p *PatternCapturer) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// paintFrame advances a moving bar of color across the canvas and
// returns the rectangle it touched.
func (p *PatternCapturer) paintFrame() Rect {
	barWidth := 32
	x := int(p.frameCount%uint64(p.width)) / barWidth * barWidth
	if x+barWidth > p.width {
		x = p.width - barWidth
	}

	for row := 0; row < p.height; row++ {
		base := row*p.width*4 + x*4
		for col := 0; col < barWidth; col++ {
			off := base + col*4
			p.pixels[off+0] = byte(p.frameCount) // B
			p.pixels[off+1] = byte(row)          // G
			p.pixels[off+2] = byte(col * 8)      // R
			p.pixels[off+3] = 0xFF               // A
		}
	}
	return Rect{X: x, Y: 0, Width: barWidth, Height: p.height}
}
