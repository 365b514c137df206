// Package capture defines the ScreenCapturer contract the controller
// side of a session drives to obtain frames of the primary display,
// plus a software reference implementation.
//
// The real OS-specific capture back-ends (DXGI desktop duplication on
// Windows, X11/Wayland on Linux, ScreenCaptureKit on macOS) live
// outside this module; only the public interface a back-end must
// expose is committed to here. PatternCapturer below is a
// dependency-free stand-in used for testing the rest of the pipeline
// (ColorConverter, VideoEncoder, MediaTrack) end to end without real
// display access; it generates a synthetic animated frame and honors
// the same lease/dirty-rect contract a hardware back-end would.
package capture
