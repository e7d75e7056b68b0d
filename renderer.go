package arprobe

import (
	"sync"

	"github.com/gogpu/arprobe/ar"
)

// Renderer draws the camera preview and samples camera colors for the
// render loop. All methods are called from the render goroutine.
//
// Setup allocates every resource for one rendering surface and is the only
// fatal step: an error means the surface cannot be used. Release frees what
// Setup allocated and may be followed by another Setup when the surface is
// recreated.
type Renderer interface {
	// Name identifies the implementation in logs ("software", "wgpu").
	Name() string

	Setup() error
	Resize(width, height int)

	// DrawPreview draws the frame's camera image to the display and makes
	// it the source for SampleColors.
	DrawPreview(frame ar.Frame) error

	ColorSampler

	Release()
}

// ColorSampler samples the current camera image.
type ColorSampler interface {
	// SampleColors returns one color per texture-normalized coordinate, in
	// order. Coordinates outside [0, 1] are clamped to the image edge.
	SampleColors(frame ar.Frame, texCoords []Coordinate) ([]RGBA, error)
}

// DeviceProviderAware is implemented by renderers that can share a GPU
// device owned by the host application.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	rendererMu sync.RWMutex
	registered Renderer
)

// initializer is implemented by renderers that probe hardware on
// registration.
type initializer interface {
	Init() error
}

// RegisterRenderer installs r as the preferred renderer returned by
// DefaultRenderer. GPU packages call it from init:
//
//	import _ "github.com/gogpu/arprobe/gpu"
//
// If r implements Init() error it is called first, and r is not
// registered when it fails.
func RegisterRenderer(r Renderer) error {
	if r == nil {
		return ErrRendererNil
	}
	if in, ok := r.(initializer); ok {
		if err := in.Init(); err != nil {
			return err
		}
	}
	rendererMu.Lock()
	old := registered
	registered = r
	rendererMu.Unlock()
	if old != nil && old != r {
		old.Release()
	}
	propagateLogger(r, Logger())
	Logger().Info("arprobe: renderer registered", "name", r.Name())
	return nil
}

// RegisteredRenderer returns the registered renderer, or nil.
func RegisteredRenderer() Renderer {
	rendererMu.RLock()
	defer rendererMu.RUnlock()
	return registered
}

// DefaultRenderer returns the registered renderer, or a new
// SoftwareRenderer when nothing is registered.
func DefaultRenderer() Renderer {
	if r := RegisteredRenderer(); r != nil {
		return r
	}
	return NewSoftwareRenderer()
}

// SetRendererDeviceProvider passes a device provider to the registered
// renderer. It is a no-op when no renderer is registered or it cannot
// share devices.
func SetRendererDeviceProvider(provider any) error {
	r := RegisteredRenderer()
	if r == nil {
		return nil
	}
	if dpa, ok := r.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
