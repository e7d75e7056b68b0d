package arprobe

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/arprobe/ar"
)

// Clip planes of the projection used to place probes.
const (
	NearPlane = 0.1
	FarPlane  = 100.0
)

// Projection is an anchor's position in view pixels for one frame.
type Projection struct {
	ID       AnchorID
	Position Coordinate
}

// ViewProjection returns projection * view for camera.
func ViewProjection(camera ar.Camera) mgl32.Mat4 {
	return camera.ProjectionMatrix(NearPlane, FarPlane).Mul4(camera.ViewMatrix())
}

// ClipToNDC transforms the origin of model by vp and divides by w. It
// reports false when the point lies on or behind the camera plane (w <= 0).
func ClipToNDC(vp, model mgl32.Mat4) (mgl32.Vec2, bool) {
	world := model.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	clip := vp.Mul4x1(world)
	if clip.W() <= 0 {
		return mgl32.Vec2{}, false
	}
	return mgl32.Vec2{clip.X() / clip.W(), clip.Y() / clip.W()}, true
}

// ProjectAnchors projects every anchor onto the frame's display. Anchors
// behind the camera are left out; the others keep their input order.
// NDC positions are converted to view pixels by the engine in one batch.
func ProjectAnchors(frame ar.Frame, entries []AnchorEntry) []Projection {
	if len(entries) == 0 {
		return nil
	}
	vp := ViewProjection(frame.Camera())

	ids := make([]AnchorID, 0, len(entries))
	ndc := make([]mgl32.Vec2, 0, len(entries))
	for _, e := range entries {
		p, ok := ClipToNDC(vp, e.Anchor.Pose().Matrix())
		if !ok {
			continue
		}
		ids = append(ids, e.ID)
		ndc = append(ndc, p)
	}
	if len(ndc) == 0 {
		return nil
	}

	view := frame.TransformCoordinates2D(ar.SpaceNDC, ar.SpaceView, ndc)
	out := make([]Projection, len(ids))
	for i, id := range ids {
		out[i] = Projection{ID: id, Position: Coordinate{X: view[i].X(), Y: view[i].Y()}}
	}
	return out
}

// TextureCoordinates converts view-pixel projections to texture-normalized
// coordinates with one engine transform.
func TextureCoordinates(frame ar.Frame, projections []Projection) []Coordinate {
	if len(projections) == 0 {
		return nil
	}
	pts := make([]mgl32.Vec2, len(projections))
	for i, p := range projections {
		pts[i] = p.Position.Vec2()
	}
	return vecsToCoordinates(frame.TransformCoordinates2D(ar.SpaceView, ar.SpaceTextureNormalized, pts))
}
