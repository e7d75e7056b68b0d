// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"sync"

	"github.com/gogpu/arprobe/ar"
)

// Anchor is a simulated anchor.
type Anchor struct {
	pose ar.Pose

	mu       sync.Mutex
	state    ar.TrackingState
	detached bool
}

// Pose implements ar.Anchor.
func (a *Anchor) Pose() ar.Pose { return a.pose }

// TrackingState implements ar.Anchor.
func (a *Anchor) TrackingState() ar.TrackingState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Detach implements ar.Anchor.
func (a *Anchor) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detached = true
	a.state = ar.TrackingStopped
}

// Detached reports whether Detach was called.
func (a *Anchor) Detached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detached
}

func (a *Anchor) revoke() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = ar.TrackingStopped
}

type plane struct {
	state ar.TrackingState
}

func (p plane) TrackingState() ar.TrackingState { return p.state }

// hit is a ray/plane intersection.
type hit struct {
	session  *Session
	pose     ar.Pose
	distance float32
	plane    plane
}

func (h hit) Pose() ar.Pose           { return h.pose }
func (h hit) Distance() float32       { return h.distance }
func (h hit) Trackable() ar.Trackable { return h.plane }

func (h hit) CreateAnchor() (ar.Anchor, error) {
	return h.session.createAnchor(h.pose)
}
