package pipeline

import (
	"sync"

	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/player"
	"github.com/go-deskstream/deskstream/queue"
	"github.com/go-deskstream/deskstream/render"
	"github.com/go-deskstream/deskstream/video"
	"github.com/sirupsen/logrus"
)

// renderQueueDepth bounds how many encoded packets may queue ahead of
// the decoder. A few frames of slack absorb jitter-buffer bursts
// without letting stale frames pile up behind fresh ones.
const renderQueueDepth = 4

// RenderPipeline drives the controlled-side receive -> decode -> render
// path as a single dedicated goroutine staged through a BlockingQueue,
// gated by a player.Manager. Feed is wired to
// ControlledSession.OnVideoFrameReceived; ControlledSession itself
// carries no decode/render logic of its own.
type RenderPipeline struct {
	decoder  video.VideoDecoder
	renderer render.VideoRenderer

	queue *queue.BlockingQueue[*encodedFrame]
	state *player.Manager

	wg sync.WaitGroup
}

type encodedFrame struct {
	payload []byte
	ts90k   uint32
}

// NewRenderPipeline assembles a pipeline over an already-initialized
// decoder/renderer pair.
func NewRenderPipeline(decoder video.VideoDecoder, renderer render.VideoRenderer) *RenderPipeline {
	return &RenderPipeline{
		decoder:  decoder,
		renderer: renderer,
		queue:    queue.New[*encodedFrame](renderQueueDepth),
		state:    player.NewManager(),
	}
}

// Start walks the player state machine to Playing and launches the
// decode/render worker loop. The decoder and renderer are assumed
// already Initialize'd by the caller (their configs depend on the
// negotiated track parameters, which this package has no visibility
// into).
func (p *RenderPipeline) Start() errs.Void {
	if !p.state.RequestStateChange(player.Opening) {
		return errs.ErrVoid(errs.KindInvalidOperation, "render pipeline already started")
	}
	p.state.RequestStateChange(player.Stopped)
	p.state.RequestStateChange(player.Playing)

	p.wg.Add(1)
	go p.decodeRenderLoop()

	logrus.WithFields(logrus.Fields{
		"function": "RenderPipeline.Start",
	}).Info("render pipeline started")
	return errs.OkVoid()
}

// Pause throttles the worker loop without tearing it down.
func (p *RenderPipeline) Pause() bool {
	return p.state.RequestStateChange(player.Paused)
}

// Resume un-throttles a worker loop paused via Pause.
func (p *RenderPipeline) Resume() bool {
	return p.state.RequestStateChange(player.Playing)
}

// Stop halts the worker loop and clears the renderer's last frame.
func (p *RenderPipeline) Stop() errs.Void {
	p.state.RequestStateChange(player.Stopped)
	p.queue.Stop()
	p.wg.Wait()
	p.queue.Reset()
	return p.renderer.Clear()
}

// State exposes the pipeline's player.Manager for callers that want to
// observe or wait on pipeline state.
func (p *RenderPipeline) State() *player.Manager { return p.state }

// Feed enqueues one inbound encoded video payload for decode+render.
// Matches session.VideoFrameCallback's signature so it can be passed
// directly to ControlledSession.OnVideoFrameReceived.
func (p *RenderPipeline) Feed(payload []byte, ts90k uint32) {
	if p.state.ShouldStop() {
		return
	}
	p.queue.TryPush(&encodedFrame{payload: payload, ts90k: ts90k})
}

func (p *RenderPipeline) decodeRenderLoop() {
	defer p.wg.Done()
	for {
		if p.state.ShouldStop() {
			return
		}
		if p.state.ShouldPause() {
			if !p.state.WaitForResume(0) {
				return
			}
			continue
		}

		ef, ok := p.queue.PopTimeout(queuePollMs)
		if !ok {
			if p.queue.Stopped() {
				return
			}
			continue
		}

		decRes := p.decoder.Decode(ef.payload, ef.ts90k, ef.ts90k)
		if decRes.IsErr() {
			logrus.WithFields(logrus.Fields{
				"function": "RenderPipeline.decodeRenderLoop",
				"error":    decRes.Message(),
			}).Warn("decode failed")
			continue
		}
		frame := decRes.Value()
		if frame == nil {
			// Drain-on-EAGAIN: decoder hasn't produced a frame yet.
			continue
		}
		if renderRes := p.renderer.Render(frame); renderRes.IsErr() {
			logrus.WithFields(logrus.Fields{
				"function": "RenderPipeline.decodeRenderLoop",
				"error":    renderRes.Message(),
			}).Warn("render failed")
		}
	}
}
