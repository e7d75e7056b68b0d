package arprobe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/arprobe/ar"
)

type loopFixture struct {
	loop     *RenderLoop
	session  *fakeSession
	renderer *stubRenderer
	frame    *fakeFrame
	repo     *memRepo
	photos   *memPhotos
	capturer *Capturer
	metrics  *BasicMetricsCollector
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	fx := &loopFixture{
		session:  &fakeSession{},
		renderer: &stubRenderer{color: RGBA{200, 100, 50, 255}},
		frame:    newFakeFrame(),
		repo:     &memRepo{},
		photos:   &memPhotos{},
		metrics:  &BasicMetricsCollector{},
	}
	fx.session.last = fx.frame
	fx.capturer = NewCapturer(fx.repo, fx.photos)
	fx.loop = NewRenderLoop(fx.session, fx.renderer,
		WithCapturer(fx.capturer),
		WithMetrics(fx.metrics),
	)
	return fx
}

func (fx *loopFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.loop.Resume())
	require.NoError(t, fx.loop.SurfaceCreated())
	require.NoError(t, fx.loop.SurfaceChanged(100, 100, ar.Rotation0))
}

// addHit makes a tap at (x, y) hit a tracked surface at world position pos.
func (fx *loopFixture) addHit(x, y float32, pos mgl32.Vec3) *fakeAnchor {
	a := newFakeAnchor("hit", pos)
	fx.frame.hits[Pt(x, y)] = []ar.HitResult{fakeHit{anchor: a, trackable: ar.TrackingTracking}}
	return a
}

func TestRenderLoop_EndToEnd(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.addHit(10, 20, mgl32.Vec3{0, 0, -2})

	fx.loop.ProduceTap(10, 20)
	fx.loop.ProduceTap(30, 40)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	entries := fx.loop.Anchors().All()
	require.Len(t, entries, 1)
	id := entries[0].ID

	state := fx.loop.Probes().Snapshot()
	assert.Equal(t, map[AnchorID]Probe{
		id: {ID: id, Color: RGBA{200, 100, 50, 255}, Position: Pt(50, 50), Visible: true},
	}, state.Map())

	require.Len(t, fx.renderer.sampled, 1)
	assert.Equal(t, []Coordinate{Pt(0.5, 0.5)}, fx.renderer.sampled[0])
	assert.Equal(t, StateRendering, fx.loop.State())
	assert.Equal(t, int64(1), fx.metrics.Frames.Load())
}

func TestRenderLoop_ProbesFollowAnchorsEveryFrame(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.addHit(1, 1, mgl32.Vec3{1, 0, -2})
	fx.loop.ProduceTap(1, 1)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	fx.renderer.color = RGB(1, 2, 3)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	probes := fx.loop.Probes().Snapshot().Probes()
	require.Len(t, probes, 1)
	assert.Equal(t, RGB(1, 2, 3), probes[0].Color)
	assert.InDelta(t, 75, probes[0].Position.X, 1e-3)
	assert.Equal(t, uint64(2), fx.loop.Probes().Version())
}

func TestRenderLoop_BehindCameraKeepsPreviousProbe(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	a := fx.addHit(1, 1, mgl32.Vec3{0, 0, -2})
	fx.loop.ProduceTap(1, 1)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	// Turn the camera around.
	fx.frame.camera.view = mgl32.HomogRotate3DY(mgl32.DegToRad(180))
	fx.renderer.color = RGB(9, 9, 9)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	p, ok := fx.loop.Probes().Snapshot().Get(1)
	require.True(t, ok)
	assert.True(t, p.Visible)
	assert.Equal(t, RGBA{200, 100, 50, 255}, p.Color, "no update while behind the camera")
	assert.Zero(t, a.detachCount())
}

func TestRenderLoop_CameraUnavailableSkipsFrame(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.addHit(1, 1, mgl32.Vec3{0, 0, -2})
	fx.loop.ProduceTap(1, 1)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	before := fx.loop.Probes().Snapshot()

	fx.session.errs = []error{ar.ErrCameraNotAvailable}
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	assert.Equal(t, before, fx.loop.Probes().Snapshot())
	assert.Equal(t, uint64(1), fx.loop.Probes().Version(), "nothing published")

	fx.renderer.drawErr = fmt.Errorf("texture: %w", ar.ErrCameraNotAvailable)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	assert.Equal(t, uint64(1), fx.loop.Probes().Version())
	assert.Equal(t, int64(2), fx.metrics.FramesSkipped.Load())

	fx.renderer.drawErr = nil
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	assert.Equal(t, uint64(2), fx.loop.Probes().Version())
}

func TestRenderLoop_OtherErrorsAbandonFrame(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.renderer.sampleErr = errors.New("device lost")

	err := fx.loop.DrawFrame(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Zero(t, fx.loop.Probes().Version())
}

func TestRenderLoop_RevokedAnchorHiddenOnce(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	a := fx.addHit(1, 1, mgl32.Vec3{0, 0, -2})
	fx.loop.ProduceTap(1, 1)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	a.setState(ar.TrackingStopped)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	s := fx.loop.Probes().Snapshot()
	require.Equal(t, 1, s.Len())
	assert.Empty(t, s.Visible())
	assert.Zero(t, fx.loop.Anchors().Len())

	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	assert.Zero(t, fx.loop.Probes().Snapshot().Len())
}

func TestRenderLoop_CaptureAll(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	a1 := fx.addHit(1, 1, mgl32.Vec3{0, 0, -2})
	a2 := fx.addHit(2, 2, mgl32.Vec3{1, 0, -2})
	fx.loop.ProduceTap(1, 1)
	fx.loop.ProduceTap(2, 2)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	fx.loop.CaptureAll()
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	require.NoError(t, fx.capturer.Wait())

	assert.Equal(t, CaptureNone, fx.loop.CaptureStatus())
	assert.Zero(t, fx.loop.Anchors().Len())
	assert.Equal(t, 1, a1.detachCount())
	assert.Equal(t, 1, a2.detachCount())

	s := fx.loop.Probes().Snapshot()
	assert.Equal(t, 2, s.Len(), "probes stay for one publish")
	assert.Empty(t, s.Visible())

	require.Len(t, fx.repo.palettes, 1)
	require.Len(t, fx.repo.photos, 1)
	require.Len(t, fx.repo.colors, 2)
	for _, c := range fx.repo.colors {
		assert.Equal(t, fx.repo.palettes[0].ID, c.PaletteID)
		assert.Equal(t, fx.repo.photos[0].ID, c.PhotoID)
		assert.Equal(t, RGBA{200, 100, 50, 255}, c.Color)
	}
	assert.True(t, fx.frame.image.isClosed())

	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	assert.Zero(t, fx.loop.Probes().Snapshot().Len())
}

func TestRenderLoop_CaptureSingleUsesSelectedProbe(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.addHit(1, 1, mgl32.Vec3{0, 0, -2})
	fx.addHit(2, 2, mgl32.Vec3{1, 0, -2})
	fx.loop.ProduceTap(1, 1)
	fx.loop.ProduceTap(2, 2)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	fx.loop.SelectProbe(2)
	fx.renderer.color = RGB(7, 8, 9)
	fx.loop.CaptureSingle()
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	require.NoError(t, fx.capturer.Wait())

	require.Len(t, fx.repo.colors, 1)
	assert.Zero(t, fx.repo.colors[0].PaletteID)
	assert.Equal(t, RGB(7, 8, 9), fx.repo.colors[0].Color)
	assert.Empty(t, fx.repo.palettes)
	assert.Equal(t, 2, fx.loop.Anchors().Len(), "single capture keeps anchors")
	assert.Len(t, fx.loop.Probes().Snapshot().Visible(), 2)
}

func TestRenderLoop_CaptureSingleDefaultsToCentre(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.addHit(1, 1, mgl32.Vec3{1, 0, -2}) // projects to x = 75
	fx.addHit(2, 2, mgl32.Vec3{0, 0, -2}) // projects to the centre
	fx.loop.ProduceTap(1, 1)
	fx.loop.ProduceTap(2, 2)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	p, ok := nearestProbe(fx.loop.Probes().Snapshot().Visible(), Pt(50, 50))
	require.True(t, ok)
	assert.Equal(t, AnchorID(2), p.ID)

	fx.loop.CaptureSingle()
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	require.NoError(t, fx.capturer.Wait())
	assert.Len(t, fx.repo.colors, 1)
}

func TestRenderLoop_CaptureRetriedUntilImageAvailable(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.addHit(1, 1, mgl32.Vec3{0, 0, -2})
	fx.loop.ProduceTap(1, 1)
	require.NoError(t, fx.loop.DrawFrame(context.Background()))

	fx.frame.imgErr = ar.ErrNotYetAvailable
	fx.loop.CaptureAll()
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	assert.Equal(t, CaptureAll, fx.loop.CaptureStatus())
	assert.Equal(t, 1, fx.loop.Anchors().Len())

	fx.frame.imgErr = nil
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	require.NoError(t, fx.capturer.Wait())
	assert.Equal(t, CaptureNone, fx.loop.CaptureStatus())
	assert.Len(t, fx.repo.colors, 1)
}

func TestRenderLoop_CaptureWithoutProbesIsDropped(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	fx.loop.CaptureAll()
	require.NoError(t, fx.loop.DrawFrame(context.Background()))
	require.NoError(t, fx.capturer.Wait())
	assert.Equal(t, CaptureNone, fx.loop.CaptureStatus())
	assert.Empty(t, fx.photos.stored)
}

func TestRenderLoop_Lifecycle(t *testing.T) {
	fx := newLoopFixture(t)
	ctx := context.Background()

	assert.Equal(t, StateUninitialized, fx.loop.State())
	assert.ErrorIs(t, fx.loop.DrawFrame(ctx), ErrSurfaceNotReady)

	fx.start(t)
	assert.Equal(t, StateSurfaceReady, fx.loop.State())
	assert.Equal(t, [3]int{0, 100, 100}, fx.session.geometry)
	assert.Equal(t, 100, fx.renderer.width)

	require.NoError(t, fx.loop.DrawFrame(ctx))
	assert.Equal(t, StateRendering, fx.loop.State())

	require.NoError(t, fx.loop.Pause())
	assert.Equal(t, StatePaused, fx.loop.State())
	assert.Equal(t, 1, fx.session.paused)
	updates := fx.session.updates
	require.NoError(t, fx.loop.DrawFrame(ctx))
	assert.Equal(t, updates, fx.session.updates, "no work while paused")

	require.NoError(t, fx.loop.Resume())
	assert.Equal(t, StateRendering, fx.loop.State())
	assert.Equal(t, 2, fx.session.resumed)

	// Surface recreation releases and rebuilds renderer resources.
	require.NoError(t, fx.loop.SurfaceCreated())
	assert.Equal(t, 1, fx.renderer.releases)
	assert.Equal(t, 2, fx.renderer.setups)
	assert.Equal(t, StateSurfaceReady, fx.loop.State())

	require.NoError(t, fx.loop.Destroy())
	assert.Equal(t, StateDestroyed, fx.loop.State())
	assert.Equal(t, 1, fx.session.closed)
	assert.Equal(t, 2, fx.renderer.releases)
	require.NoError(t, fx.loop.Destroy())
	assert.Equal(t, 1, fx.session.closed, "destroy is idempotent")

	assert.ErrorIs(t, fx.loop.DrawFrame(ctx), ErrDestroyed)
	assert.ErrorIs(t, fx.loop.SurfaceCreated(), ErrDestroyed)
	assert.ErrorIs(t, fx.loop.Resume(), ErrDestroyed)
	assert.ErrorIs(t, fx.loop.Pause(), ErrDestroyed)
}

func TestRenderLoop_DestroyFromAnyState(t *testing.T) {
	setups := map[string]func(*testing.T, *loopFixture){
		"uninitialized": func(*testing.T, *loopFixture) {},
		"surface ready": func(t *testing.T, fx *loopFixture) { fx.start(t) },
		"rendering": func(t *testing.T, fx *loopFixture) {
			fx.start(t)
			require.NoError(t, fx.loop.DrawFrame(context.Background()))
		},
		"paused": func(t *testing.T, fx *loopFixture) {
			fx.start(t)
			require.NoError(t, fx.loop.Pause())
		},
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			fx := newLoopFixture(t)
			setup(t, fx)
			a := fx.addHit(1, 1, mgl32.Vec3{0, 0, -2})
			fx.loop.Anchors().Put(a)

			require.NoError(t, fx.loop.Destroy())
			assert.Equal(t, StateDestroyed, fx.loop.State())
			assert.Equal(t, 1, a.detachCount())
			assert.Equal(t, 1, fx.session.closed)
		})
	}
}

func TestRenderLoop_SetupFailureIsFatal(t *testing.T) {
	fx := newLoopFixture(t)
	fx.renderer.setupErr = errors.New("shader validation failed")

	err := fx.loop.SurfaceCreated()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shader validation failed")
	assert.Equal(t, StateUninitialized, fx.loop.State())
	assert.ErrorIs(t, fx.loop.DrawFrame(context.Background()), ErrSurfaceNotReady)
}

func TestRenderLoop_SurfaceCreatedWhilePaused(t *testing.T) {
	fx := newLoopFixture(t)
	require.NoError(t, fx.loop.Pause())
	require.NoError(t, fx.loop.SurfaceCreated())
	assert.Equal(t, StatePaused, fx.loop.State())

	require.NoError(t, fx.loop.Resume())
	assert.Equal(t, StateSurfaceReady, fx.loop.State())
}

func TestRenderLoop_ContextCancelled(t *testing.T) {
	fx := newLoopFixture(t)
	fx.start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, fx.loop.DrawFrame(ctx), context.Canceled)
}

func TestIsAllowedTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateUninitialized, StateSurfaceReady, true},
		{StateUninitialized, StateRendering, false},
		{StateSurfaceReady, StateRendering, true},
		{StateRendering, StateRendering, true},
		{StateRendering, StatePaused, true},
		{StatePaused, StateRendering, true},
		{StateDestroyed, StateSurfaceReady, false},
		{StateDestroyed, StateDestroyed, false},
		{StatePaused, StateDestroyed, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isAllowedTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
