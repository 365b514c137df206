package capture

import (
	"github.com/go-deskstream/deskstream/errs"
)

// PixelFormat names the pixel layout a captured frame's memory is
// packed in. Capture backends commit to exactly these two.
type PixelFormat int

const (
	PixelFormatBGRA32 PixelFormat = iota
	PixelFormatRGBA32
)

func (f PixelFormat) String() string {
	if f == PixelFormatRGBA32 {
		return "RGBA32"
	}
	return "BGRA32"
}

// Rect is an inclusive-exclusive screen rectangle in pixel coordinates.
type Rect struct {
	X, Y, Width, Height int
}

// MoveRect describes a block-move optimization: the region at Src was
// relocated to Dst without its pixels changing, so a capturer can
// report it instead of a full dirty rectangle.
type MoveRect struct {
	Src, Dst Rect
}

// FrameMetadata carries the change-tracking information delivered
// alongside every captured frame.
type FrameMetadata struct {
	DirtyRects    []Rect
	MoveRects     []MoveRect
	KeyFrame      bool
	SkippedFrames uint64
	DirtyRatio    float64
}

// Frame is the capture back-end's output: pixel memory borrowed from
// the back-end until the next ReleaseFrame call, plus its metadata.
// The Pixels slice must never be retained past ReleaseFrame; callers
// that need the data longer must copy it first.
type Frame struct {
	Width, Height int
	Stride        int
	Format        PixelFormat
	Pixels        []byte
	Meta          FrameMetadata
}

// Config selects the capture source and its change-tracking behavior.
type Config struct {
	OutputIndex     int
	TargetFPS       int
	EnableDirtyRect bool
	EnableMoveRect  bool
}

// ScreenCapturer produces a lazy sequence of frames of the primary
// display (or the configured output) with dirty-region metadata. A
// frame returned by CaptureFrame is a lease: its Pixels slice is valid
// only until the next ReleaseFrame call, and the caller must release
// (by copying, or by consuming and calling ReleaseFrame) before
// requesting the next frame.
//
// The first frame produced after Start is always a key frame. On
// access loss (display mode change, output disconnect) an
// implementation transparently re-acquires its source and emits the
// next frame as a key frame; a persistent failure surfaces as a
// CaptureFrame that returns not-ok plus a logged error, not a panic.
type ScreenCapturer interface {
	Initialize(config Config) errs.Void
	Start() errs.Void
	Stop() errs.Void
	// CaptureFrame returns the next frame if one is ready. A not-ok
	// result with KindNone means "nothing new yet" (poll again); any
	// other error kind is a capture failure.
	CaptureFrame() errs.Result[Frame]
	ReleaseFrame()
	ForceKeyFrame()
	Resolution() (width, height int)
	PixelFormat() PixelFormat
	CurrentFPS() float64
	IsInitialized() bool
}

// dedupeAgainstFullScreen drops a full-screen dirty rectangle from the
// list when nothing else changed: a back-end with no dirty metadata
// reports the whole screen, which downstream consumers treat the same
// as an empty list.
func dedupeAgainstFullScreen(rects []Rect, width, height int) []Rect {
	if len(rects) != 1 {
		return rects
	}
	r := rects[0]
	if r.X == 0 && r.Y == 0 && r.Width == width && r.Height == height {
		return nil
	}
	return rects
}
