// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ar

import "time"

// ImageFormat identifies the pixel layout of a CameraImage.
type ImageFormat int

const (
	// FormatYUV420 is three planes: full-resolution Y, half-resolution U and V.
	FormatYUV420 ImageFormat = iota
	// FormatRGBA8 is a single interleaved 8-bit RGBA plane.
	FormatRGBA8
)

// String returns the format name.
func (f ImageFormat) String() string {
	switch f {
	case FormatYUV420:
		return "yuv420"
	case FormatRGBA8:
		return "rgba8"
	default:
		return "unknown"
	}
}

// Plane is one plane of a raw camera image.
type Plane struct {
	Data        []byte
	RowStride   int
	PixelStride int
}

// CameraImage is a raw CPU copy of a camera frame.
type CameraImage interface {
	Width() int
	Height() int
	Format() ImageFormat
	Planes() []Plane
	Timestamp() time.Duration
	Close() error
}
