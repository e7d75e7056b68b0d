// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ar

import "github.com/go-gl/mathgl/mgl32"

// CoordinateSpace names a 2D coordinate system understood by
// Frame.TransformCoordinates2D.
type CoordinateSpace int

const (
	// SpaceNDC is normalized device space, [-1, 1] on both axes, y up.
	SpaceNDC CoordinateSpace = iota
	// SpaceView is display pixels, origin top-left, y down.
	SpaceView
	// SpaceTextureNormalized is the camera image in [0, 1], origin top-left.
	SpaceTextureNormalized
)

// String returns the space name.
func (s CoordinateSpace) String() string {
	switch s {
	case SpaceNDC:
		return "ndc"
	case SpaceView:
		return "view"
	case SpaceTextureNormalized:
		return "texture-normalized"
	default:
		return "unknown"
	}
}

// Rotation is the display rotation relative to the camera sensor, in
// clockwise quarter turns.
type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Degrees returns the rotation angle in degrees.
func (r Rotation) Degrees() int { return int(r&3) * 90 }

// RotationFromDegrees maps 0, 90, 180 and 270 to a Rotation. Other values
// are rounded down to the previous quarter turn.
func RotationFromDegrees(deg int) Rotation {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return Rotation(deg / 90)
}

// TrackingState describes whether the engine currently tracks a camera,
// plane or anchor.
type TrackingState int

const (
	// TrackingTracking means the pose is being actively updated.
	TrackingTracking TrackingState = iota
	// TrackingPaused means tracking is temporarily lost and may resume.
	TrackingPaused
	// TrackingStopped means tracking will never resume.
	TrackingStopped
)

// String returns the tracking state name.
func (s TrackingState) String() string {
	switch s {
	case TrackingTracking:
		return "tracking"
	case TrackingPaused:
		return "paused"
	case TrackingStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Pose is a rigid transform from local to world space.
type Pose struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
}

// IdentityPose returns the pose at the world origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: mgl32.QuatIdent()}
}

// TranslationPose returns a pose at t with no rotation.
func TranslationPose(t mgl32.Vec3) Pose {
	return Pose{Translation: t, Rotation: mgl32.QuatIdent()}
}

// Matrix returns the column-major model matrix T * R.
func (p Pose) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(p.Translation.X(), p.Translation.Y(), p.Translation.Z())
	return t.Mul4(p.Rotation.Normalize().Mat4())
}
