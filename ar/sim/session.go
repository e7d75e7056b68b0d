// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/arprobe/ar"
)

// FrameInterval is the simulated time between frames.
const FrameInterval = time.Second / 30

// Config describes the simulated device and world. Zero fields take the
// defaults noted on each field.
type Config struct {
	// ImageWidth and ImageHeight are the landscape sensor size (160x120).
	ImageWidth, ImageHeight int
	// FovY is the vertical field of view of the display in degrees (60).
	FovY float32
	// Eye is the initial camera position ((0, 1.5, 0)).
	Eye mgl32.Vec3
	// Yaw and Pitch are the initial view direction in degrees (0, -40).
	Yaw, Pitch float32
	// TileSize is the ground tile edge in metres (0.25).
	TileSize float32
	// Palette colors the tiles (DefaultPalette).
	Palette []color.NRGBA
	// Sky is the color above the horizon (light blue).
	Sky color.NRGBA
}

func (c Config) withDefaults() Config {
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		c.ImageWidth, c.ImageHeight = 160, 120
	}
	if c.FovY <= 0 {
		c.FovY = 60
	}
	if c.Eye == (mgl32.Vec3{}) {
		c.Eye = mgl32.Vec3{0, 1.5, 0}
	}
	if c.Yaw == 0 && c.Pitch == 0 {
		c.Pitch = -40
	}
	if c.TileSize <= 0 {
		c.TileSize = 0.25
	}
	if len(c.Palette) == 0 {
		c.Palette = DefaultPalette
	}
	if c.Sky == (color.NRGBA{}) {
		c.Sky = color.NRGBA{R: 150, G: 190, B: 235, A: 255}
	}
	return c
}

// Session is a simulated ar.Session. It starts paused.
type Session struct {
	mu sync.Mutex

	cfg   Config
	scene Scene

	running bool
	closed  bool
	frames  int64

	rot          ar.Rotation
	dispW, dispH int

	eye        mgl32.Vec3
	yaw, pitch float32

	tracking      ar.TrackingState
	planeTracking ar.TrackingState
	anchors       []*Anchor

	cameraFailures int
	imageFailures  int
	anchorFailures int

	image *image.RGBA
	dirty bool
}

// NewSession creates a paused session.
func NewSession(cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:   cfg,
		scene: Scene{TileSize: cfg.TileSize, Palette: cfg.Palette, Sky: cfg.Sky},
		dispW: cfg.ImageWidth,
		dispH: cfg.ImageHeight,
		eye:   cfg.Eye,
		yaw:   cfg.Yaw,
		pitch: cfg.Pitch,
		dirty: true,
	}
}

// Scene returns the simulated world.
func (s *Session) Scene() Scene { return s.scene }

// Resume implements ar.Session.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ar.ErrSessionClosed
	}
	s.running = true
	return nil
}

// Pause implements ar.Session.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ar.ErrSessionClosed
	}
	s.running = false
	return nil
}

// Close implements ar.Session. Remaining anchors are detached.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.running = false
	for _, a := range s.anchors {
		a.Detach()
	}
	s.anchors = nil
	return nil
}

// Running reports whether the session is resumed.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SetDisplayGeometry implements ar.Session.
func (s *Session) SetDisplayGeometry(rotation ar.Rotation, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	s.rot = rotation & 3
	s.dispW, s.dispH = width, height
	s.dirty = true
}

// MoveCamera places the camera at eye looking along yaw and pitch
// (degrees). Pitch is clamped to (-89, 89).
func (s *Session) MoveCamera(eye mgl32.Vec3, yaw, pitch float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eye = eye
	s.yaw = yaw
	s.pitch = mgl32.Clamp(pitch, -89, 89)
	s.dirty = true
}

// SetTracking sets the camera tracking state. While not tracking, hit
// tests return nothing and anchor creation fails with ar.ErrNotTracking.
func (s *Session) SetTracking(state ar.TrackingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = state
}

// SetPlaneTracking sets the tracking state reported by hit trackables.
func (s *Session) SetPlaneTracking(state ar.TrackingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planeTracking = state
}

// FailCamera makes the next n updates fail with ar.ErrCameraNotAvailable.
func (s *Session) FailCamera(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameraFailures = n
}

// FailImageAcquire makes the next n image acquisitions fail with
// ar.ErrNotYetAvailable.
func (s *Session) FailImageAcquire(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageFailures = n
}

// FailAnchorCreation makes the next n anchor creations fail with
// ar.ErrNotTracking, as if tracking was lost after the hit test.
func (s *Session) FailAnchorCreation(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchorFailures = n
}

// RevokeAnchors stops tracking every live anchor, as an engine does when
// it gives up on a pose.
func (s *Session) RevokeAnchors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.anchors {
		a.revoke()
	}
}

// Anchors returns every anchor created by the session that is not detached.
func (s *Session) Anchors() []*Anchor {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Anchor
	for _, a := range s.anchors {
		if !a.Detached() {
			out = append(out, a)
		}
	}
	return out
}

// Update implements ar.Session.
func (s *Session) Update() (ar.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, ar.ErrSessionClosed
	case !s.running:
		return nil, ar.ErrSessionPaused
	case s.cameraFailures > 0:
		s.cameraFailures--
		return nil, ar.ErrCameraNotAvailable
	}

	s.frames++
	geom := s.geometry()
	cam := newCamera(s.eye, s.yaw, s.pitch, s.cfg.FovY, geom.aspect(), s.tracking)
	if s.dirty || s.image == nil {
		s.image = renderImage(s.scene, cam, geom)
		s.dirty = false
	}
	return &Frame{
		session:   s,
		timestamp: time.Duration(s.frames) * FrameInterval,
		camera:    cam,
		geom:      geom,
		plane:     plane{state: s.planeTracking},
		image:     s.image,
	}, nil
}

// geometry returns the current display geometry. Callers hold s.mu.
func (s *Session) geometry() geometry {
	return geometry{
		imgW:  s.cfg.ImageWidth,
		imgH:  s.cfg.ImageHeight,
		dispW: s.dispW,
		dispH: s.dispH,
		rot:   s.rot,
	}
}

func (s *Session) createAnchor(pose ar.Pose) (ar.Anchor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ar.ErrSessionClosed
	}
	if s.anchorFailures > 0 {
		s.anchorFailures--
		return nil, ar.ErrNotTracking
	}
	if s.tracking != ar.TrackingTracking {
		return nil, ar.ErrNotTracking
	}
	a := &Anchor{pose: pose, state: ar.TrackingTracking}
	s.anchors = append(s.anchors, a)
	return a, nil
}

func (s *Session) acquireImage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageFailures > 0 {
		s.imageFailures--
		return ar.ErrNotYetAvailable
	}
	return nil
}

// renderImage ray casts every sensor pixel through the display projection.
func renderImage(scene Scene, cam camera, geom geometry) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, geom.imgW, geom.imgH))
	for py := range geom.imgH {
		for px := range geom.imgW {
			uv := mgl32.Vec2{(float32(px) + 0.5) / float32(geom.imgW), (float32(py) + 0.5) / float32(geom.imgH)}
			ndc := geom.viewToNDC(geom.textureToView(uv))
			c := scene.Sky
			if p, _, ok := intersect(cam.ray(ndc)); ok {
				c = scene.ColorAt(p)
			}
			img.SetRGBA(px, py, color.RGBA(c))
		}
	}
	return img
}
