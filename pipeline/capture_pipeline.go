package pipeline

import (
	"sync"
	"time"

	"github.com/go-deskstream/deskstream/capture"
	"github.com/go-deskstream/deskstream/errs"
	"github.com/go-deskstream/deskstream/player"
	"github.com/go-deskstream/deskstream/queue"
	"github.com/go-deskstream/deskstream/video"
	"github.com/sirupsen/logrus"
)

// captureQueueDepth bounds how many converted frames may sit ahead of
// the encoder before captureLoop blocks. Small on purpose: a stale
// frame is worthless once a newer one exists, so this is depth, not a
// buffer meant to absorb bursts.
const captureQueueDepth = 2

// captureIdlePoll is how long captureLoop sleeps after a CaptureFrame
// call reports KindNone ("nothing new yet"), matching the capturer
// contract documented on capture.ScreenCapturer.
const captureIdlePoll = 2 * time.Millisecond

// queuePollMs bounds how long captureLoop/encodeLoop block on the
// staging queue between checks of the player state, so Stop/Pause take
// effect promptly instead of waiting out a long timeout.
const queuePollMs = 50

// VideoFrameSink matches ControllerSession.SendVideoFrame's signature:
// the destination an encoded packet is handed to once produced.
type VideoFrameSink func(payload []byte, ts90k uint32, markerFlag bool) errs.Void

// CapturePipeline drives the controller-side capture -> convert ->
// encode -> send path as two dedicated goroutines staged through a
// BlockingQueue and gated by a player.Manager. ControllerSession stays
// a thin track/channel assembler; this type owns the worker loops that
// actually move frames.
type CapturePipeline struct {
	capturer  capture.ScreenCapturer
	converter *video.ColorConverter
	encoder   video.VideoEncoder
	sink      VideoFrameSink

	queue *queue.BlockingQueue[*video.VideoFrame]
	state *player.Manager

	wg sync.WaitGroup
}

// NewCapturePipeline assembles a pipeline over an already-constructed
// capturer/converter/encoder, delivering encoded packets to sink.
func NewCapturePipeline(capturer capture.ScreenCapturer, converter *video.ColorConverter, encoder video.VideoEncoder, sink VideoFrameSink) *CapturePipeline {
	return &CapturePipeline{
		capturer:  capturer,
		converter: converter,
		encoder:   encoder,
		sink:      sink,
		queue:     queue.New[*video.VideoFrame](captureQueueDepth),
		state:     player.NewManager(),
	}
}

// Start initializes the capturer, walks the player state machine
// Idle->Opening->Stopped->Playing, and launches captureLoop/encodeLoop.
func (p *CapturePipeline) Start(config capture.Config) errs.Void {
	if !p.state.RequestStateChange(player.Opening) {
		return errs.ErrVoid(errs.KindInvalidOperation, "capture pipeline already started")
	}
	if res := p.capturer.Initialize(config); res.IsErr() {
		p.state.RequestStateChange(player.Error)
		return res
	}
	if res := p.capturer.Start(); res.IsErr() {
		p.state.RequestStateChange(player.Error)
		return res
	}

	p.state.RequestStateChange(player.Stopped)
	p.state.RequestStateChange(player.Playing)

	p.wg.Add(2)
	go p.captureLoop()
	go p.encodeLoop()

	logrus.WithFields(logrus.Fields{
		"function": "CapturePipeline.Start",
	}).Info("capture pipeline started")
	return errs.OkVoid()
}

// Pause halts captureLoop without tearing it down; encodeLoop does not
// check for pause and keeps encoding frames already queued.
func (p *CapturePipeline) Pause() bool {
	return p.state.RequestStateChange(player.Paused)
}

// Resume un-throttles worker loops paused via Pause.
func (p *CapturePipeline) Resume() bool {
	return p.state.RequestStateChange(player.Playing)
}

// Stop halts both worker loops, drains the queue, and stops the
// capturer. Safe to call once after Start.
func (p *CapturePipeline) Stop() errs.Void {
	p.state.RequestStateChange(player.Stopped)
	p.queue.Stop()
	p.wg.Wait()
	p.queue.Reset()
	return p.capturer.Stop()
}

// State exposes the pipeline's player.Manager for callers that want to
// observe or wait on pipeline state (e.g. before issuing a Pause).
func (p *CapturePipeline) State() *player.Manager { return p.state }

func (p *CapturePipeline) captureLoop() {
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

		res := p.capturer.CaptureFrame()
		if res.IsErr() {
			if res.Code() == errs.KindNone {
				time.Sleep(captureIdlePoll)
				continue
			}
			logrus.WithFields(logrus.Fields{
				"function": "CapturePipeline.captureLoop",
				"error":    res.Message(),
			}).Warn("capture frame failed")
			continue
		}

		frame := res.Value()
		convRes := p.converter.Convert(frame.Pixels, frame.Width, frame.Height, frame.Stride, toCaptureFormat(frame.Format))
		p.capturer.ReleaseFrame()
		if convRes.IsErr() {
			logrus.WithFields(logrus.Fields{
				"function": "CapturePipeline.captureLoop",
				"error":    convRes.Message(),
			}).Warn("color conversion failed")
			continue
		}

		p.queue.PushTimeout(convRes.Value(), queuePollMs)
	}
}

func (p *CapturePipeline) encodeLoop() {
	defer p.wg.Done()
	for {
		if p.state.ShouldStop() {
			return
		}

		vf, ok := p.queue.PopTimeout(queuePollMs)
		if !ok {
			if p.queue.Stopped() {
				return
			}
			continue
		}

		res := p.encoder.Encode(vf)
		if res.IsErr() {
			logrus.WithFields(logrus.Fields{
				"function": "CapturePipeline.encodeLoop",
				"error":    res.Message(),
			}).Warn("encode failed")
			continue
		}
		pkt := res.Value()
		if pkt == nil {
			// Drain-on-EAGAIN: the encoder's internal pipeline hasn't
			// produced a packet yet for this frame.
			continue
		}
		// A frame is never fragmented across multiple RTP packets, so
		// every sent packet is itself the frame's last and only packet:
		// marker is always set.
		if sendRes := p.sink(pkt.Data, pkt.PTS, true); sendRes.IsErr() {
			logrus.WithFields(logrus.Fields{
				"function": "CapturePipeline.encodeLoop",
				"error":    sendRes.Message(),
			}).Debug("send encoded frame failed")
		}
	}
}

func toCaptureFormat(f capture.PixelFormat) video.CapturePixelFormat {
	if f == capture.PixelFormatRGBA32 {
		return video.CaptureRGBA32
	}
	return video.CaptureBGRA32
}
