package arprobe

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Coordinate is a 2D point. It carries no coordinate space: the same type
// holds view pixels and texture-normalized values, and callers track which.
type Coordinate struct {
	X, Y float32
}

// Pt is a shorthand for Coordinate{X: x, Y: y}.
func Pt(x, y float32) Coordinate {
	return Coordinate{X: x, Y: y}
}

// Vec2 converts the coordinate to an mgl32 vector.
func (c Coordinate) Vec2() mgl32.Vec2 {
	return mgl32.Vec2{c.X, c.Y}
}

// Sub returns c - o.
func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{X: c.X - o.X, Y: c.Y - o.Y}
}

// LenSqr returns the squared length of c as a vector.
func (c Coordinate) LenSqr() float32 {
	return c.X*c.X + c.Y*c.Y
}

// String implements fmt.Stringer.
func (c Coordinate) String() string {
	return fmt.Sprintf("(%g, %g)", c.X, c.Y)
}

func vecsToCoordinates(vs []mgl32.Vec2) []Coordinate {
	out := make([]Coordinate, len(vs))
	for i, v := range vs {
		out[i] = Coordinate{X: v.X(), Y: v.Y()}
	}
	return out
}
