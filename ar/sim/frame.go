// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"image"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/arprobe/ar"
)

// Frame is one simulated frame.
type Frame struct {
	session   *Session
	timestamp time.Duration
	camera    camera
	geom      geometry
	plane     plane
	image     *image.RGBA
}

// Timestamp implements ar.Frame.
func (f *Frame) Timestamp() time.Duration { return f.timestamp }

// Camera implements ar.Frame.
func (f *Frame) Camera() ar.Camera { return f.camera }

// HitTest implements ar.Frame. The ground plane is the only trackable, so
// at most one hit is returned.
func (f *Frame) HitTest(x, y, maxDistance float32) []ar.HitResult {
	if f.camera.tracking != ar.TrackingTracking {
		return nil
	}
	origin, dir := f.camera.ray(f.geom.viewToNDC(mgl32.Vec2{x, y}))
	p, t, ok := intersect(origin, dir)
	if !ok || t > maxDistance {
		return nil
	}
	return []ar.HitResult{hit{
		session:  f.session,
		pose:     ar.TranslationPose(p),
		distance: t,
		plane:    f.plane,
	}}
}

// TransformCoordinates2D implements ar.Frame.
func (f *Frame) TransformCoordinates2D(from, to ar.CoordinateSpace, pts []mgl32.Vec2) []mgl32.Vec2 {
	return f.geom.transform(from, to, pts)
}

// CameraTexture implements ar.Frame.
func (f *Frame) CameraTexture() (image.Image, error) {
	return f.image, nil
}

// AcquireCameraImage implements ar.Frame.
func (f *Frame) AcquireCameraImage() (ar.CameraImage, error) {
	if err := f.session.acquireImage(); err != nil {
		return nil, err
	}
	return newCameraImage(f.image, f.timestamp), nil
}
