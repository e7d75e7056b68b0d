// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultPalette colors the ground tiles when Config.Palette is empty.
var DefaultPalette = []color.NRGBA{
	{R: 200, G: 100, B: 50, A: 255},
	{R: 40, G: 120, B: 220, A: 255},
	{R: 230, G: 210, B: 60, A: 255},
	{R: 60, G: 170, B: 90, A: 255},
	{R: 150, G: 60, B: 170, A: 255},
	{R: 240, G: 240, B: 235, A: 255},
	{R: 30, G: 30, B: 35, A: 255},
	{R: 250, G: 130, B: 170, A: 255},
}

// Scene is a tiled ground plane under a uniform sky.
type Scene struct {
	TileSize float32
	Palette  []color.NRGBA
	Sky      color.NRGBA
}

// TileAt returns the tile indices containing world point p.
func (s Scene) TileAt(p mgl32.Vec3) (i, j int) {
	return int(math.Floor(float64(p.X() / s.TileSize))), int(math.Floor(float64(p.Z() / s.TileSize)))
}

// TileCenter returns the world position of the center of tile (i, j).
func (s Scene) TileCenter(i, j int) mgl32.Vec3 {
	return mgl32.Vec3{(float32(i) + 0.5) * s.TileSize, 0, (float32(j) + 0.5) * s.TileSize}
}

// ColorAt returns the ground color at world point p.
func (s Scene) ColorAt(p mgl32.Vec3) color.NRGBA {
	i, j := s.TileAt(p)
	n := len(s.Palette)
	idx := ((i*7+j*13)%n + n) % n
	return s.Palette[idx]
}

// intersect returns the ground point hit by the ray, if any.
func intersect(origin, dir mgl32.Vec3) (mgl32.Vec3, float32, bool) {
	if dir.Y() >= 0 || origin.Y() <= 0 {
		return mgl32.Vec3{}, 0, false
	}
	t := -origin.Y() / dir.Y()
	return origin.Add(dir.Mul(t)), t, true
}
