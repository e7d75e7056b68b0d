// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/arprobe/ar"
)

// camera is the per-frame camera snapshot.
type camera struct {
	eye      mgl32.Vec3
	view     mgl32.Mat4
	inv      mgl32.Mat4
	fovY     float32
	aspect   float32
	tracking ar.TrackingState
}

func newCamera(eye mgl32.Vec3, yaw, pitch, fovY, aspect float32, tracking ar.TrackingState) camera {
	c := camera{
		eye:      eye,
		view:     mgl32.LookAtV(eye, eye.Add(forward(yaw, pitch)), mgl32.Vec3{0, 1, 0}),
		fovY:     fovY,
		aspect:   aspect,
		tracking: tracking,
	}
	c.inv = c.ProjectionMatrix(0.1, 100).Mul4(c.view).Inv()
	return c
}

// forward returns the viewing direction for yaw and pitch in degrees. Yaw
// zero looks down -Z; positive pitch looks up.
func forward(yaw, pitch float32) mgl32.Vec3 {
	y, p := mgl32.DegToRad(yaw), mgl32.DegToRad(pitch)
	cp := cos(p)
	return mgl32.Vec3{-sin(y) * cp, sin(p), -cos(y) * cp}
}

func (c camera) TrackingState() ar.TrackingState { return c.tracking }

func (c camera) ProjectionMatrix(near, far float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.fovY), c.aspect, near, far)
}

func (c camera) ViewMatrix() mgl32.Mat4 { return c.view }

// ray returns the world ray through a point given in NDC.
func (c camera) ray(ndc mgl32.Vec2) (origin, dir mgl32.Vec3) {
	far := c.inv.Mul4x1(mgl32.Vec4{ndc.X(), ndc.Y(), 1, 1})
	p := far.Vec3().Mul(1 / far.W())
	return c.eye, p.Sub(c.eye).Normalize()
}

func sin(v float32) float32 { return float32(math.Sin(float64(v))) }
func cos(v float32) float32 { return float32(math.Cos(float64(v))) }
