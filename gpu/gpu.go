//go:build !nogpu

// Package gpu registers the wgpu color sampler.
//
// Import this package to draw the camera preview and sample probe colors
// with wgpu/hal render pipelines instead of the CPU:
//
//	import _ "github.com/gogpu/arprobe/gpu"
//
// If GPU initialization fails (no Vulkan device available), registration is
// skipped and the render loop uses the software renderer.
package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/arprobe"
	gpuimpl "github.com/gogpu/arprobe/internal/gpu"
)

func init() {
	if err := arprobe.RegisterRenderer(&gpuimpl.SampleRenderer{}); err != nil {
		arprobe.Logger().Warn("GPU sampler not available", "err", err)
	}
}

// SetDeviceProvider makes the registered sampler use a GPU device shared by
// the host application instead of its own.
//
// The provider must also implement HalDevice() any and HalQueue() any for
// direct HAL access. Call it before the render loop's first Setup, or the
// sampler rebuilds its pipelines on the new device.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	return arprobe.SetRendererDeviceProvider(provider)
}
