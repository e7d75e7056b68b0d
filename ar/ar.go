// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ar

import (
	"image"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Session is a running AR session. All methods except Update may be called
// from any goroutine; Update is called from the render goroutine only.
type Session interface {
	// Resume starts or restarts camera capture and tracking.
	Resume() error
	// Pause stops camera capture. Anchors are kept.
	Pause() error
	// Close releases the session. It is safe to call more than once.
	Close() error
	// Update advances the session and returns the latest frame.
	Update() (Frame, error)
	// SetDisplayGeometry informs the engine about the display size in pixels
	// and its rotation so coordinate transforms and projection match the view.
	SetDisplayGeometry(rotation Rotation, width, height int)
}

// Frame is an immutable snapshot of the session state at one Update.
type Frame interface {
	// Timestamp is the camera capture time of this frame.
	Timestamp() time.Duration
	// Camera returns the camera of this frame.
	Camera() Camera
	// HitTest casts a ray through the view pixel (x, y) and returns the hits
	// no farther than maxDistance metres, nearest first.
	HitTest(x, y, maxDistance float32) []HitResult
	// TransformCoordinates2D converts points between coordinate spaces
	// using the true display geometry. The result has the same length and
	// order as pts.
	TransformCoordinates2D(from, to CoordinateSpace, pts []mgl32.Vec2) []mgl32.Vec2
	// CameraTexture returns the camera image backing this frame's preview.
	CameraTexture() (image.Image, error)
	// AcquireCameraImage returns a copy of the raw camera image. The caller
	// must Close it.
	AcquireCameraImage() (CameraImage, error)
}

// Camera exposes the matrices of the physical camera for one frame.
type Camera interface {
	TrackingState() TrackingState
	// ProjectionMatrix returns the projection for the current display
	// geometry with the given clip planes.
	ProjectionMatrix(near, far float32) mgl32.Mat4
	// ViewMatrix returns the world-to-camera transform.
	ViewMatrix() mgl32.Mat4
}

// Trackable is something the engine tracks, such as a plane.
type Trackable interface {
	TrackingState() TrackingState
}

// HitResult is one intersection returned by Frame.HitTest.
type HitResult interface {
	Pose() Pose
	Distance() float32
	Trackable() Trackable
	// CreateAnchor creates an anchor at the hit pose. It fails with
	// ErrNotTracking when tracking was lost after the hit test.
	CreateAnchor() (Anchor, error)
}

// Anchor is an engine-owned fixed pose in world space.
type Anchor interface {
	Pose() Pose
	TrackingState() TrackingState
	// Detach tells the engine the anchor is no longer needed. After Detach
	// the tracking state is TrackingStopped.
	Detach()
}
