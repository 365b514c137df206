// Package pipeline assembles the worker-goroutine structure around the
// capture->encode->send and receive->decode->render paths: a capture
// goroutine and an encode+send goroutine on the controller side, a single
// decode+render goroutine on the controlled side, each staged through a
// queue.BlockingQueue and coordinated by a player.Manager. Stop ends every
// loop; pause halts the capture and decode+render loops without
// busy-waiting, while the encode+send loop keeps draining frames already
// queued.
//
// The session package's ControllerSession/ControlledSession stay thin
// assemblers (track/channel wiring only); this package is where the
// actual producer/consumer loop bodies live, driving a
// capture.ScreenCapturer/video.VideoEncoder pair on the controller side
// and a video.VideoDecoder/render.VideoRenderer pair on the controlled
// side.
package pipeline
