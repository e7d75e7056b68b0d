package arprobe

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/arprobe/ar"
)

type fakeTrackable struct{ state ar.TrackingState }

func (t fakeTrackable) TrackingState() ar.TrackingState { return t.state }

type fakeAnchor struct {
	name string
	pose ar.Pose

	mu       sync.Mutex
	state    ar.TrackingState
	detached int
}

func newFakeAnchor(name string, pos mgl32.Vec3) *fakeAnchor {
	return &fakeAnchor{name: name, pose: ar.TranslationPose(pos)}
}

func (a *fakeAnchor) Pose() ar.Pose { return a.pose }

func (a *fakeAnchor) TrackingState() ar.TrackingState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *fakeAnchor) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detached++
	a.state = ar.TrackingStopped
}

func (a *fakeAnchor) setState(s ar.TrackingState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

func (a *fakeAnchor) detachCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detached
}

type fakeHit struct {
	anchor    *fakeAnchor
	trackable ar.TrackingState
	err       error
}

func (h fakeHit) Pose() ar.Pose           { return h.anchor.pose }
func (h fakeHit) Distance() float32       { return 1 }
func (h fakeHit) Trackable() ar.Trackable { return fakeTrackable{state: h.trackable} }

func (h fakeHit) CreateAnchor() (ar.Anchor, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.anchor, nil
}

type fakeCamera struct {
	proj, view mgl32.Mat4
}

func (c fakeCamera) TrackingState() ar.TrackingState          { return ar.TrackingTracking }
func (c fakeCamera) ProjectionMatrix(_, _ float32) mgl32.Mat4 { return c.proj }
func (c fakeCamera) ViewMatrix() mgl32.Mat4                   { return c.view }

// defaultCamera looks down -Z from the origin with a 90 degree square
// frustum.
func defaultCamera() fakeCamera {
	return fakeCamera{
		proj: mgl32.Perspective(mgl32.DegToRad(90), 1, NearPlane, FarPlane),
		view: mgl32.Ident4(),
	}
}

// fakeFrame maps NDC to view pixels on a 100x100 display and view pixels
// to texture space by dividing by 100. It records every transform call.
type fakeFrame struct {
	camera  fakeCamera
	hits    map[Coordinate][]ar.HitResult
	texture image.Image
	texErr  error
	imgErr  error
	image   *fakeImage

	mu         sync.Mutex
	transforms [][2]ar.CoordinateSpace
	hitTests   []Coordinate
}

func newFakeFrame() *fakeFrame {
	return &fakeFrame{camera: defaultCamera(), hits: map[Coordinate][]ar.HitResult{}}
}

func (f *fakeFrame) Timestamp() time.Duration { return 0 }
func (f *fakeFrame) Camera() ar.Camera        { return f.camera }

func (f *fakeFrame) HitTest(x, y, _ float32) []ar.HitResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hitTests = append(f.hitTests, Pt(x, y))
	return f.hits[Pt(x, y)]
}

func (f *fakeFrame) TransformCoordinates2D(from, to ar.CoordinateSpace, pts []mgl32.Vec2) []mgl32.Vec2 {
	f.mu.Lock()
	f.transforms = append(f.transforms, [2]ar.CoordinateSpace{from, to})
	f.mu.Unlock()

	out := make([]mgl32.Vec2, len(pts))
	for i, p := range pts {
		v := p
		switch from {
		case ar.SpaceNDC:
			v = mgl32.Vec2{(p.X() + 1) * 50, (1 - p.Y()) * 50}
		case ar.SpaceTextureNormalized:
			v = p.Mul(100)
		}
		switch to {
		case ar.SpaceNDC:
			v = mgl32.Vec2{v.X()/50 - 1, 1 - v.Y()/50}
		case ar.SpaceTextureNormalized:
			v = v.Mul(1.0 / 100)
		}
		out[i] = v
	}
	return out
}

func (f *fakeFrame) CameraTexture() (image.Image, error) {
	if f.texErr != nil {
		return nil, f.texErr
	}
	if f.texture == nil {
		return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
	}
	return f.texture, nil
}

func (f *fakeFrame) AcquireCameraImage() (ar.CameraImage, error) {
	if f.imgErr != nil {
		return nil, f.imgErr
	}
	if f.image == nil {
		f.image = &fakeImage{}
	}
	return f.image, nil
}

type fakeImage struct {
	mu     sync.Mutex
	closed bool
}

func (i *fakeImage) Width() int               { return 1 }
func (i *fakeImage) Height() int              { return 1 }
func (i *fakeImage) Format() ar.ImageFormat   { return ar.FormatRGBA8 }
func (i *fakeImage) Planes() []ar.Plane       { return []ar.Plane{{Data: []byte{1, 2, 3, 4}, RowStride: 4}} }
func (i *fakeImage) Timestamp() time.Duration { return 0 }

func (i *fakeImage) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

func (i *fakeImage) isClosed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// fakeSession returns queued frames or errors in order, then repeats the
// last frame.
type fakeSession struct {
	mu       sync.Mutex
	frames   []ar.Frame
	errs     []error
	last     ar.Frame
	resumed  int
	paused   int
	closed   int
	updates  int
	geometry [3]int
}

func (s *fakeSession) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumed++
	return nil
}

func (s *fakeSession) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused++
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) Update() (ar.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(s.frames) > 0 {
		s.last = s.frames[0]
		s.frames = s.frames[1:]
	}
	if s.last == nil {
		return nil, errors.New("fake session: no frame")
	}
	return s.last, nil
}

func (s *fakeSession) SetDisplayGeometry(rotation ar.Rotation, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geometry = [3]int{int(rotation), width, height}
}

// stubRenderer returns a fixed color per sample and records calls.
type stubRenderer struct {
	color     RGBA
	setupErr  error
	sampleErr error
	drawErr   error

	setups, releases, draws int
	sampled                 [][]Coordinate
	width, height           int
}

func (r *stubRenderer) Name() string    { return "stub" }
func (r *stubRenderer) Resize(w, h int) { r.width, r.height = w, h }
func (r *stubRenderer) Release()        { r.releases++ }

func (r *stubRenderer) Setup() error {
	r.setups++
	return r.setupErr
}

func (r *stubRenderer) DrawPreview(ar.Frame) error {
	r.draws++
	return r.drawErr
}

func (r *stubRenderer) SampleColors(_ ar.Frame, texCoords []Coordinate) ([]RGBA, error) {
	if r.sampleErr != nil {
		return nil, r.sampleErr
	}
	r.sampled = append(r.sampled, texCoords)
	out := make([]RGBA, len(texCoords))
	for i := range out {
		out[i] = r.color
	}
	return out, nil
}

// memRepo is a minimal Repository for capture tests.
type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	photos   []PhotoRecord
	palettes []PaletteRecord
	colors   []ColorRecord
	err      error
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) InsertPhoto(_ context.Context, p PhotoRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.photos = append(r.photos, p)
	return p.ID, nil
}

func (r *memRepo) InsertPalette(_ context.Context, p PaletteRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.palettes = append(r.palettes, p)
	return p.ID, nil
}

func (r *memRepo) InsertColor(_ context.Context, c ColorRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	c.ID = r.id()
	r.colors = append(r.colors, c)
	return c.ID, nil
}

type memPhotos struct {
	mu     sync.Mutex
	stored []CaptureStatus
}

func (p *memPhotos) StorePhoto(_ context.Context, img ar.CameraImage, status CaptureStatus) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stored = append(p.stored, status)
	return "mem://photo", nil
}
