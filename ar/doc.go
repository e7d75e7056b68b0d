// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ar defines the capability surface arprobe expects from an AR
// tracking engine.
//
// The engine owns everything about the physical world: camera pose, scene
// understanding, anchors and the camera image. arprobe only consumes it
// through the interfaces in this package, so a platform binding (ARCore via
// gomobile, ARKit, a recorded session) or the simulator in ar/sim can be
// plugged in without touching the sampling pipeline.
//
// # Coordinate spaces
//
// Every conversion between screen-related spaces goes through
// [Frame.TransformCoordinates2D]. The engine is the only party that knows
// the true display geometry, rotation and camera crop, so callers never
// derive pixel coordinates from guessed dimensions.
//
//   - [SpaceNDC]: normalized device coordinates, x and y in [-1, 1], y up.
//   - [SpaceView]: display pixels, origin top-left, y down.
//   - [SpaceTextureNormalized]: camera image coordinates in [0, 1], origin
//     top-left of the sensor image.
package ar
