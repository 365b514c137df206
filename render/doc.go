// Package render defines the VideoRenderer contract a ControlledSession
// drives to present decoded frames, plus two back-ends: PortableRenderer
// (a dependency-free software path usable on every platform) and
// D3D11Renderer (a Windows-only, interface-complete stub that models
// the zero-copy GPU-to-GPU present path without a real Direct3D
// binding, since no GPU API is bound in this build).
package render
