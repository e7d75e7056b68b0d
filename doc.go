// Package arprobe samples the colors of real-world points seen through an
// AR camera.
//
// # Overview
//
// The user taps the live camera preview to place probes. Each tap is
// hit-tested against the AR engine's understanding of the scene and, on a
// tracked surface, becomes an anchor: a fixed pose in world space. Every
// frame the anchors are projected back onto the display and the camera
// image is sampled at each projection, producing one Probe (color, screen
// position, visibility) per anchor. The UI reads the published ProbeState
// and can capture a single probe or the whole set as a palette.
//
// # Quick Start
//
//	session := sim.NewSession(sim.Config{})
//	loop := arprobe.NewRenderLoop(session, arprobe.DefaultRenderer())
//	_ = loop.Resume()
//	_ = loop.SurfaceCreated()
//	_ = loop.SurfaceChanged(1080, 1920, ar.Rotation0)
//
//	loop.ProduceTap(540, 1400) // from the UI goroutine
//	_ = loop.DrawFrame(ctx)    // once per display refresh
//
//	for _, p := range loop.Probes().Snapshot().Visible() {
//	    fmt.Println(p.ID, p.Color.Hex(), p.Position)
//	}
//
// # Pipeline
//
// One frame runs, in order: session update, anchor creation from pending
// taps, pruning of anchors the engine stopped tracking, camera preview,
// projection of all anchors (world to clip to NDC, then NDC to view pixels
// through the engine), one batch conversion to texture coordinates, one
// sampling pass, merge and publish. Coordinate conversions between screen
// spaces are always delegated to the engine (see package ar).
//
// # Renderers
//
// [SoftwareRenderer] draws and samples on the CPU. Importing
// github.com/gogpu/arprobe/gpu registers a wgpu renderer that samples with
// a 1x1 render target and readback; [DefaultRenderer] prefers it when a
// GPU is available.
//
// # Concurrency
//
// DrawFrame and the lifecycle methods are serialized. The tap queue accepts
// taps from any goroutine, anchor reads return snapshots, and the
// ProbeBoard publishes immutable states to any number of readers.
package arprobe
