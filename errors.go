package arprobe

import "errors"

var (
	// ErrInvalidTransition is returned when a lifecycle call is not allowed
	// in the current render loop state.
	ErrInvalidTransition = errors.New("arprobe: invalid state transition")

	// ErrSurfaceNotReady is returned by DrawFrame before SurfaceCreated.
	ErrSurfaceNotReady = errors.New("arprobe: surface not ready")

	// ErrDestroyed is returned by every render loop call after Destroy.
	ErrDestroyed = errors.New("arprobe: render loop destroyed")

	// ErrNotSetUp is returned by a renderer used before Setup.
	ErrNotSetUp = errors.New("arprobe: renderer not set up")

	// ErrNoProbe is returned by a single capture with no visible probe.
	ErrNoProbe = errors.New("arprobe: no probe to capture")

	// ErrRendererNil is returned when registering a nil renderer.
	ErrRendererNil = errors.New("arprobe: renderer must not be nil")
)
