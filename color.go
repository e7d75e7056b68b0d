package arprobe

import (
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"
)

// RGBA is a sampled color with unsigned 8-bit channels.
type RGBA struct {
	R, G, B, A uint8
}

// Color converts RGBA to the standard color.Color interface.
func (c RGBA) Color() color.Color {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// FromColor converts a standard color.Color to RGBA (non-premultiplied).
func FromColor(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA{R: n.R, G: n.G, B: n.B, A: n.A}
}

// RGB creates an opaque color.
func RGB(r, g, b uint8) RGBA {
	return RGBA{R: r, G: g, B: b, A: 255}
}

// Hex returns the color as "#RRGGBB". Alpha is not encoded.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %d)", c.R, c.G, c.B, c.A)
}

// UnpackTexel decodes one RGBA8 texel read back from the GPU as a
// little-endian word. Each channel is masked to its low eight bits so a
// byte that a signed reader would see as -1 comes out as 255.
func UnpackTexel(word uint32) RGBA {
	return RGBA{
		R: uint8(word & 0xFF),
		G: uint8((word >> 8) & 0xFF),
		B: uint8((word >> 16) & 0xFF),
		A: uint8((word >> 24) & 0xFF),
	}
}

// HSL creates an opaque color from hue (degrees), saturation and lightness
// (both in [0, 1]).
func HSL(h, s, l float64) RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h /= 360

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 1.0/6:
		r, g, b = c, x, 0
	case h < 2.0/6:
		r, g, b = x, c, 0
	case h < 3.0/6:
		r, g, b = 0, c, x
	case h < 4.0/6:
		r, g, b = 0, x, c
	case h < 5.0/6:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return RGB(to8(r+m), to8(g+m), to8(b+m))
}

// to8 maps [0, 1] to [0, 255] with clamping and rounding.
func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// paletteSizes and paletteWeights define how many stops GeneratePalette
// produces and how likely each count is.
var (
	paletteSizes   = []int{2, 3, 4, 5, 6}
	paletteWeights = []float64{0.25, 0.25, 0.25, 0.15, 0.10}
)

// RandomColor returns a color with random hue, saturation in [0.3, 0.8)
// and lightness in [0.1, 0.9).
func RandomColor(rng *rand.Rand) RGBA {
	return HSL(rng.Float64()*360, rng.Float64()*0.5+0.3, rng.Float64()*0.8+0.1)
}

// GeneratePalette returns 2 to 6 colors interpolated between two random
// base colors with a small per-channel jitter.
func GeneratePalette(rng *rand.Rand) []RGBA {
	n := sampleDiscrete(rng, paletteSizes, paletteWeights)
	a, b := RandomColor(rng), RandomColor(rng)

	out := make([]RGBA, n)
	for i := range out {
		t := float64(i) / float64(n-1)
		out[i] = RGBA{
			R: to8(lerp(a.R, b.R, t) + jitter(rng)),
			G: to8(lerp(a.G, b.G, t) + jitter(rng)),
			B: to8(lerp(a.B, b.B, t) + jitter(rng)),
			A: 255,
		}
	}
	return out
}

func lerp(a, b uint8, t float64) float64 {
	fa, fb := float64(a)/255, float64(b)/255
	return fa*(1-t) + fb*t
}

func jitter(rng *rand.Rand) float64 {
	return rng.Float64()*0.1 - 0.05
}

// sampleDiscrete picks an outcome with probability proportional to its weight.
func sampleDiscrete(rng *rand.Rand, outcomes []int, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	var acc float64
	for i, w := range weights {
		acc += w
		if r < acc {
			return outcomes[i]
		}
	}
	return outcomes[len(outcomes)-1]
}
