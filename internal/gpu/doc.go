//go:build !nogpu

// Package gpu implements the arprobe renderer on wgpu/hal.
//
// SampleRenderer uploads the camera image once per frame, draws it as a
// full-screen quad for the preview, and samples probe colors by rendering
// the camera texture into a 1x1 target once per coordinate. All samples of
// a frame are encoded into one command buffer and read back after a single
// submit and fence wait.
//
// The package is internal; import github.com/gogpu/arprobe/gpu to register
// the renderer.
package gpu
