package arprobe

import (
	"image"
	"image/draw"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/arprobe/ar"
)

// SoftwareRenderer draws the preview and samples colors on the CPU.
//
// The preview is the camera image warped onto an RGBA display buffer with
// the affine map the engine reports for the current display geometry.
// Sampling reads the nearest camera texel.
type SoftwareRenderer struct {
	mu      sync.Mutex
	ready   bool
	preview *image.RGBA
	texture image.Image
	interp  xdraw.Transformer
}

// NewSoftwareRenderer creates a CPU renderer with bilinear preview filtering.
func NewSoftwareRenderer() *SoftwareRenderer {
	return &SoftwareRenderer{interp: xdraw.ApproxBiLinear}
}

// Name implements Renderer.
func (r *SoftwareRenderer) Name() string { return "software" }

// Setup implements Renderer.
func (r *SoftwareRenderer) Setup() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = true
	return nil
}

// Resize implements Renderer. It reallocates the preview buffer.
func (r *SoftwareRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width <= 0 || height <= 0 {
		r.preview = nil
		return
	}
	if r.preview != nil && r.preview.Rect.Dx() == width && r.preview.Rect.Dy() == height {
		return
	}
	r.preview = image.NewRGBA(image.Rect(0, 0, width, height))
}

// DrawPreview implements Renderer.
func (r *SoftwareRenderer) DrawPreview(frame ar.Frame) error {
	tex, err := frame.CameraTexture()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return ErrNotSetUp
	}
	r.texture = tex
	if r.preview == nil {
		return nil
	}

	draw.Draw(r.preview, r.preview.Rect, image.Black, image.Point{}, draw.Src)
	s2d := previewTransform(frame, tex.Bounds())
	r.interp.Transform(r.preview, s2d, tex, tex.Bounds(), xdraw.Src, nil)
	return nil
}

// SampleColors implements ColorSampler.
func (r *SoftwareRenderer) SampleColors(frame ar.Frame, texCoords []Coordinate) ([]RGBA, error) {
	if len(texCoords) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return nil, ErrNotSetUp
	}
	tex := r.texture
	if tex == nil {
		var err error
		if tex, err = frame.CameraTexture(); err != nil {
			return nil, err
		}
	}

	b := tex.Bounds()
	out := make([]RGBA, len(texCoords))
	for i, c := range texCoords {
		x := b.Min.X + texelIndex(c.X, b.Dx())
		y := b.Min.Y + texelIndex(c.Y, b.Dy())
		out[i] = FromColor(tex.At(x, y))
	}
	return out, nil
}

// Preview returns the last drawn preview. The image is reused by the next
// DrawPreview.
func (r *SoftwareRenderer) Preview() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preview
}

// Release implements Renderer.
func (r *SoftwareRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = false
	r.texture = nil
}

// texelIndex maps a normalized coordinate to a texel index in [0, n).
func texelIndex(v float32, n int) int {
	i := int(v * float32(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// previewTransform returns the affine map from camera texels to display
// pixels, derived from three display corners.
func previewTransform(frame ar.Frame, src image.Rectangle) f64.Aff3 {
	corners := []mgl32.Vec2{{-1, 1}, {1, 1}, {-1, -1}}
	view := frame.TransformCoordinates2D(ar.SpaceNDC, ar.SpaceView, corners)
	tex := frame.TransformCoordinates2D(ar.SpaceNDC, ar.SpaceTextureNormalized, corners)

	w, h := float64(src.Dx()), float64(src.Dy())
	var s, d [3][2]float64
	for i := range corners {
		s[i] = [2]float64{float64(src.Min.X) + float64(tex[i].X())*w, float64(src.Min.Y) + float64(tex[i].Y())*h}
		d[i] = [2]float64{float64(view[i].X()), float64(view[i].Y())}
	}
	return solveAffine(s, d)
}

// solveAffine returns the affine transform mapping s[i] to d[i]. It returns
// the identity when the source points are collinear.
func solveAffine(s, d [3][2]float64) f64.Aff3 {
	// Edge vectors in source and destination.
	a, b := s[1][0]-s[0][0], s[2][0]-s[0][0]
	c, e := s[1][1]-s[0][1], s[2][1]-s[0][1]
	det := a*e - b*c
	if det == 0 {
		return f64.Aff3{1, 0, 0, 0, 1, 0}
	}
	ia, ib := e/det, -b/det
	ic, ie := -c/det, a/det

	p, q := d[1][0]-d[0][0], d[2][0]-d[0][0]
	r, t := d[1][1]-d[0][1], d[2][1]-d[0][1]

	// L = D * S^-1
	l00, l01 := p*ia+q*ic, p*ib+q*ie
	l10, l11 := r*ia+t*ic, r*ib+t*ie

	return f64.Aff3{
		l00, l01, d[0][0] - l00*s[0][0] - l01*s[0][1],
		l10, l11, d[0][1] - l10*s[0][0] - l11*s[0][1],
	}
}
