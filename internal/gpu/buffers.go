//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"image"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/arprobe"
)

// sampleSlot is the byte stride of one sample in the uniform and staging
// buffers. It satisfies both the uniform offset alignment and the 256-byte
// row pitch required by CopyTextureToBuffer.
const sampleSlot = 256

// Vertex strides in bytes.
const (
	quadVertexStride    = 2 * 4
	previewVertexStride = 4 * 4
)

// quadCorners is a full-screen quad as a triangle strip, in NDC.
var quadCorners = []mgl32.Vec2{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

// putFloats writes vs as little-endian float32 values at dst.
func putFloats(dst []byte, vs ...float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// quadVertexData returns the position-only quad used by the sample pass.
func quadVertexData() []byte {
	out := make([]byte, len(quadCorners)*quadVertexStride)
	for i, c := range quadCorners {
		putFloats(out[i*quadVertexStride:], c.X(), c.Y())
	}
	return out
}

// previewVertexData interleaves the quad corners with the texture
// coordinates the engine reports for them.
func previewVertexData(uv []mgl32.Vec2) []byte {
	out := make([]byte, len(quadCorners)*previewVertexStride)
	for i, c := range quadCorners {
		putFloats(out[i*previewVertexStride:], c.X(), c.Y(), uv[i].X(), uv[i].Y())
	}
	return out
}

// sampleUniformData packs one coordinate per sampleSlot.
func sampleUniformData(coords []arprobe.Coordinate) []byte {
	out := make([]byte, len(coords)*sampleSlot)
	for i, c := range coords {
		putFloats(out[i*sampleSlot:], c.X, c.Y)
	}
	return out
}

// decodeSamples reads one RGBA8 texel from the start of each slot.
func decodeSamples(readback []byte, n int) []arprobe.RGBA {
	out := make([]arprobe.RGBA, n)
	for i := range out {
		out[i] = arprobe.UnpackTexel(binary.LittleEndian.Uint32(readback[i*sampleSlot:]))
	}
	return out
}

// rgbaPixels returns img as tightly packed RGBA8 rows. Tightly packed
// *image.RGBA images are returned without copying.
func rgbaPixels(img image.Image) (pix []byte, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == width*4 && b.Min == (image.Point{}) {
		return rgba.Pix[:width*height*4], width, height
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst.Pix, width, height
}
