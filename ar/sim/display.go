// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/arprobe/ar"
)

// geometry relates display pixels to the camera sensor image.
//
// The sensor image is rotated by rot to match the display orientation and
// scaled to fill the display, cropping the longer axis symmetrically.
type geometry struct {
	imgW, imgH   int
	dispW, dispH int
	rot          ar.Rotation
}

// oriented returns the sensor size as seen in display orientation.
func (g geometry) oriented() (w, h float32) {
	if g.rot == ar.Rotation90 || g.rot == ar.Rotation270 {
		return float32(g.imgH), float32(g.imgW)
	}
	return float32(g.imgW), float32(g.imgH)
}

// scale returns display pixels per oriented image pixel.
func (g geometry) scale() float32 {
	ow, oh := g.oriented()
	return max(float32(g.dispW)/ow, float32(g.dispH)/oh)
}

func (g geometry) aspect() float32 {
	return float32(g.dispW) / float32(g.dispH)
}

func (g geometry) ndcToView(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		(p.X() + 1) / 2 * float32(g.dispW),
		(1 - p.Y()) / 2 * float32(g.dispH),
	}
}

func (g geometry) viewToNDC(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		p.X()/float32(g.dispW)*2 - 1,
		1 - p.Y()/float32(g.dispH)*2,
	}
}

func (g geometry) viewToTexture(p mgl32.Vec2) mgl32.Vec2 {
	ow, oh := g.oriented()
	s := g.scale()
	a := ((p.X()-float32(g.dispW)/2)/s + ow/2) / ow
	b := ((p.Y()-float32(g.dispH)/2)/s + oh/2) / oh
	return toSensor(g.rot, a, b)
}

func (g geometry) textureToView(p mgl32.Vec2) mgl32.Vec2 {
	ow, oh := g.oriented()
	s := g.scale()
	a, b := fromSensor(g.rot, p.X(), p.Y())
	return mgl32.Vec2{
		(a*ow-ow/2)*s + float32(g.dispW)/2,
		(b*oh-oh/2)*s + float32(g.dispH)/2,
	}
}

// toSensor maps display-oriented normalized image coordinates to sensor
// normalized coordinates.
func toSensor(rot ar.Rotation, a, b float32) mgl32.Vec2 {
	switch rot {
	case ar.Rotation90:
		return mgl32.Vec2{b, 1 - a}
	case ar.Rotation180:
		return mgl32.Vec2{1 - a, 1 - b}
	case ar.Rotation270:
		return mgl32.Vec2{1 - b, a}
	default:
		return mgl32.Vec2{a, b}
	}
}

// fromSensor is the inverse of toSensor.
func fromSensor(rot ar.Rotation, u, v float32) (a, b float32) {
	switch rot {
	case ar.Rotation90:
		return 1 - v, u
	case ar.Rotation180:
		return 1 - u, 1 - v
	case ar.Rotation270:
		return v, 1 - u
	default:
		return u, v
	}
}

// toView converts p from space to view pixels.
func (g geometry) toView(space ar.CoordinateSpace, p mgl32.Vec2) mgl32.Vec2 {
	switch space {
	case ar.SpaceNDC:
		return g.ndcToView(p)
	case ar.SpaceTextureNormalized:
		return g.textureToView(p)
	default:
		return p
	}
}

// fromView converts view pixels to space.
func (g geometry) fromView(space ar.CoordinateSpace, p mgl32.Vec2) mgl32.Vec2 {
	switch space {
	case ar.SpaceNDC:
		return g.viewToNDC(p)
	case ar.SpaceTextureNormalized:
		return g.viewToTexture(p)
	default:
		return p
	}
}

func (g geometry) transform(from, to ar.CoordinateSpace, pts []mgl32.Vec2) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, len(pts))
	for i, p := range pts {
		out[i] = g.fromView(to, g.toView(from, p))
	}
	return out
}
