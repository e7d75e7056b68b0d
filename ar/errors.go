// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ar

import "errors"

var (
	// ErrCameraNotAvailable reports that the camera could not deliver a frame.
	// It is a per-frame condition; the next frame may succeed.
	ErrCameraNotAvailable = errors.New("ar: camera not available")

	// ErrNotTracking reports that an operation needed active tracking, for
	// example anchor creation racing with tracking loss.
	ErrNotTracking = errors.New("ar: not tracking")

	// ErrNotYetAvailable reports that a camera image has not been produced yet.
	ErrNotYetAvailable = errors.New("ar: image not yet available")

	// ErrSessionPaused is returned by Update while the session is paused.
	ErrSessionPaused = errors.New("ar: session paused")

	// ErrSessionClosed is returned by every session call after Close.
	ErrSessionClosed = errors.New("ar: session closed")
)
