package main

import (
	"image"
	"math"

	"github.com/gogpu/gg"

	"github.com/gogpu/arprobe"
)

const (
	probeRadius  = 14
	swatchHeight = 48
)

// writeOverlay draws the preview with a ring per probe filled with its
// sampled color, and a swatch strip of the captured palette at the bottom.
func writeOverlay(path string, renderer arprobe.Renderer, state arprobe.ProbeState, w, h int) error {
	var dc *gg.Context
	if sw, ok := renderer.(*arprobe.SoftwareRenderer); ok && sw.Preview() != nil {
		dc = gg.NewContextForImage(sw.Preview())
	} else {
		// The GPU preview stays on the device; draw a neutral backdrop.
		dc = gg.NewContextForImage(image.NewRGBA(image.Rect(0, 0, w, h)))
		dc.SetRGB(0.15, 0.15, 0.18)
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		_ = dc.Fill()
	}
	defer func() { _ = dc.Close() }()

	probes := state.Visible()
	for _, p := range probes {
		x, y := float64(p.Position.X), float64(p.Position.Y)

		dc.SetColor(p.Color.Color())
		dc.DrawCircle(x, y, probeRadius)
		_ = dc.Fill()

		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(3)
		dc.DrawCircle(x, y, probeRadius)
		_ = dc.Stroke()

		// Crosshair on the anchor point.
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1)
		dc.DrawLine(x-4, y, x+4, y)
		dc.DrawLine(x, y-4, x, y+4)
		_ = dc.Stroke()
	}

	if len(probes) > 0 {
		sw := math.Floor(float64(w) / float64(len(probes)))
		top := float64(h - swatchHeight)
		for i, p := range probes {
			dc.SetColor(p.Color.Color())
			dc.DrawRectangle(float64(i)*sw, top, sw, swatchHeight)
			_ = dc.Fill()
		}
	}

	return dc.SavePNG(path)
}
