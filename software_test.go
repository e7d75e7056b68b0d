package arprobe

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveAffine(t *testing.T) {
	s := [3][2]float64{{0, 0}, {10, 0}, {0, 10}}
	d := [3][2]float64{{5, 5}, {5, 25}, {-15, 5}} // rotate 90, scale 2, translate
	m := solveAffine(s, d)

	apply := func(x, y float64) (float64, float64) {
		return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
	}
	for i := range s {
		x, y := apply(s[i][0], s[i][1])
		assert.InDelta(t, d[i][0], x, 1e-9)
		assert.InDelta(t, d[i][1], y, 1e-9)
	}
	x, y := apply(10, 10)
	assert.InDelta(t, -15, x, 1e-9)
	assert.InDelta(t, 25, y, 1e-9)
}

func TestSolveAffine_Degenerate(t *testing.T) {
	s := [3][2]float64{{0, 0}, {1, 1}, {2, 2}}
	m := solveAffine(s, s)
	assert.Equal(t, 1.0, m[0])
	assert.Equal(t, 1.0, m[4])
}

func quadrantImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			c := color.RGBA{R: 255, A: 255}
			switch {
			case x >= 2 && y < 2:
				c = color.RGBA{G: 255, A: 255}
			case x < 2 && y >= 2:
				c = color.RGBA{B: 255, A: 255}
			case x >= 2 && y >= 2:
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSoftwareRenderer_SampleColors(t *testing.T) {
	r := NewSoftwareRenderer()
	require.NoError(t, r.Setup())
	f := newFakeFrame()
	f.texture = quadrantImage()
	require.NoError(t, r.DrawPreview(f))

	got, err := r.SampleColors(f, []Coordinate{
		Pt(0.1, 0.1), Pt(0.9, 0.1), Pt(0.1, 0.9), Pt(0.9, 0.9),
		Pt(-1, -1), Pt(2, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, []RGBA{
		RGB(255, 0, 0), RGB(0, 255, 0), RGB(0, 0, 255), RGB(255, 255, 255),
		RGB(255, 0, 0), RGB(255, 255, 255),
	}, got)
}

func TestSoftwareRenderer_RequiresSetup(t *testing.T) {
	r := NewSoftwareRenderer()
	f := newFakeFrame()
	assert.ErrorIs(t, r.DrawPreview(f), ErrNotSetUp)
	_, err := r.SampleColors(f, []Coordinate{Pt(0, 0)})
	assert.ErrorIs(t, err, ErrNotSetUp)

	require.NoError(t, r.Setup())
	r.Release()
	assert.ErrorIs(t, r.DrawPreview(f), ErrNotSetUp)
}

func TestSoftwareRenderer_Preview(t *testing.T) {
	r := NewSoftwareRenderer()
	require.NoError(t, r.Setup())
	r.Resize(100, 100)
	f := newFakeFrame()
	f.texture = quadrantImage()
	require.NoError(t, r.DrawPreview(f))

	pv := r.Preview()
	require.NotNil(t, pv)
	assert.Equal(t, image.Rect(0, 0, 100, 100), pv.Rect)
	// The fake frame maps the texture 1:1 onto the display scaled by 25.
	assert.Equal(t, color.RGBA{R: 255, A: 255}, pv.RGBAAt(10, 10))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, pv.RGBAAt(90, 10))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, pv.RGBAAt(10, 90))
}

func TestSoftwareRenderer_EmptySample(t *testing.T) {
	r := NewSoftwareRenderer()
	got, err := r.SampleColors(newFakeFrame(), nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
