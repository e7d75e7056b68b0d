// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sim is a deterministic software AR engine.
//
// The world is an infinite ground plane at y = 0 tiled with palette colors.
// A pinhole camera looks at it from a configurable pose; the camera image
// is ray cast per sensor pixel, so a point projected with the frame's
// matrices and sampled through the frame's coordinate transforms returns
// the color of the tile under that point. Display rotation and the
// center-crop between display and sensor aspect ratios are modeled the way
// a phone presents a landscape sensor in a portrait view.
//
// Fault injection hooks (FailCamera, FailImageAcquire, FailAnchorCreation,
// SetTracking, SetPlaneTracking, RevokeAnchors) exercise every error path
// of the sampling pipeline.
package sim
