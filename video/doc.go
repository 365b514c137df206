// Package video implements the encode and decode stages of the
// remote-desktop media pipeline: the VideoEncoder/VideoDecoder
// contracts with their software implementations and factory functions,
// the ColorConverter that bridges a capturer's packed BGRA/RGBA output
// to planar YUV420, and the Scaler used by both for resizing. RTP
// framing is not this package's job; transport.RtpSender/RtpReceiver
// own that layer.
//
// Video data between stages is represented as a YUV420 VideoFrame:
//
//	frame := &video.VideoFrame{
//	    Width:  640,
//	    Height: 480,
//	    Y:      yPlane, // luminance, full resolution
//	    U:      uPlane, // chrominance, half resolution
//	    V:      vPlane, // chrominance, half resolution
//	}
//
// Encoders are built through the factory, which honors the configured
// backend and falls back to software when a hardware path is
// unavailable:
//
//	res := video.CreateVideoEncoder(video.EncoderConfig{
//	    Width:     1280,
//	    Height:    720,
//	    Framerate: 30,
//	    BitRate:   2_000_000,
//	})
//	if res.IsErr() {
//	    return res.Code()
//	}
//	enc := res.Value()
//	defer enc.Shutdown()
//
// SimpleVP8Encoder, the software bitstream behind SoftwareEncoder, is a
// length-prefixed plane dump rather than a real VP8 stream; it keeps
// the pipeline end-to-end testable without an external codec library.
//
// Types in this package are not safe for concurrent use unless their
// doc comment says otherwise. The intended pattern is one owner
// goroutine per stage, with frames handed between stages through
// queue.BlockingQueue.
package video
