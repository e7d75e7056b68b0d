// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"image"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gogpu/arprobe/ar"
)

// CameraImage is a CPU copy of a simulated camera frame in RGBA8.
type CameraImage struct {
	rgba      *image.RGBA
	timestamp time.Duration
	closed    atomic.Bool
}

func newCameraImage(src *image.RGBA, ts time.Duration) *CameraImage {
	cp := &image.RGBA{
		Pix:    slices.Clone(src.Pix),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	return &CameraImage{rgba: cp, timestamp: ts}
}

// Width implements ar.CameraImage.
func (c *CameraImage) Width() int { return c.rgba.Rect.Dx() }

// Height implements ar.CameraImage.
func (c *CameraImage) Height() int { return c.rgba.Rect.Dy() }

// Format implements ar.CameraImage.
func (c *CameraImage) Format() ar.ImageFormat { return ar.FormatRGBA8 }

// Planes implements ar.CameraImage.
func (c *CameraImage) Planes() []ar.Plane {
	return []ar.Plane{{Data: c.rgba.Pix, RowStride: c.rgba.Stride, PixelStride: 4}}
}

// Timestamp implements ar.CameraImage.
func (c *CameraImage) Timestamp() time.Duration { return c.timestamp }

// Close implements ar.CameraImage.
func (c *CameraImage) Close() error {
	c.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (c *CameraImage) Closed() bool { return c.closed.Load() }

// Image returns the pixels.
func (c *CameraImage) Image() *image.RGBA { return c.rgba }
