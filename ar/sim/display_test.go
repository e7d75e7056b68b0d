// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/gogpu/arprobe/ar"
)

var rotations = []ar.Rotation{ar.Rotation0, ar.Rotation90, ar.Rotation180, ar.Rotation270}

func TestSensorRotationRoundTrip(t *testing.T) {
	for _, rot := range rotations {
		for _, p := range []mgl32.Vec2{{0, 0}, {0.25, 0.75}, {1, 0.5}} {
			s := toSensor(rot, p.X(), p.Y())
			a, b := fromSensor(rot, s.X(), s.Y())
			assert.InDelta(t, p.X(), a, 1e-6, "rotation %v", rot)
			assert.InDelta(t, p.Y(), b, 1e-6, "rotation %v", rot)
		}
	}
}

func TestGeometryTransformRoundTrip(t *testing.T) {
	spaces := []ar.CoordinateSpace{ar.SpaceNDC, ar.SpaceView, ar.SpaceTextureNormalized}
	pts := []mgl32.Vec2{{10, 20}, {160, 120}, {300, 5}}
	for _, rot := range rotations {
		g := geometry{imgW: 160, imgH: 120, dispW: 320, dispH: 200, rot: rot}
		for _, from := range spaces {
			for _, to := range spaces {
				in := g.transform(ar.SpaceView, from, pts)
				back := g.transform(to, from, g.transform(from, to, in))
				for i := range in {
					assert.InDelta(t, in[i].X(), back[i].X(), 1e-3, "%v %v->%v", rot, from, to)
					assert.InDelta(t, in[i].Y(), back[i].Y(), 1e-3, "%v %v->%v", rot, from, to)
				}
			}
		}
	}
}

func TestGeometryCentreMapsToImageCentre(t *testing.T) {
	for _, rot := range rotations {
		g := geometry{imgW: 160, imgH: 120, dispW: 300, dispH: 300, rot: rot}
		uv := g.viewToTexture(mgl32.Vec2{150, 150})
		assert.InDelta(t, 0.5, uv.X(), 1e-6)
		assert.InDelta(t, 0.5, uv.Y(), 1e-6)
	}
}

func TestGeometryFillCrops(t *testing.T) {
	// A square display shows the middle of a 4:3 image.
	g := geometry{imgW: 160, imgH: 120, dispW: 120, dispH: 120}
	left := g.viewToTexture(mgl32.Vec2{0, 60})
	assert.InDelta(t, 0.125, left.X(), 1e-6)
	top := g.viewToTexture(mgl32.Vec2{60, 0})
	assert.InDelta(t, 0, top.Y(), 1e-6)
}

func TestGeometryRotation90(t *testing.T) {
	// The top-left display corner shows the sensor's bottom-left corner.
	g := geometry{imgW: 160, imgH: 120, dispW: 120, dispH: 160, rot: ar.Rotation90}
	uv := g.viewToTexture(mgl32.Vec2{0, 0})
	assert.InDelta(t, 0, uv.X(), 1e-6)
	assert.InDelta(t, 1, uv.Y(), 1e-6)
}
