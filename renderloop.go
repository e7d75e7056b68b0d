package arprobe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/arprobe/ar"
)

// State is a RenderLoop lifecycle state.
type State int

const (
	// StateUninitialized means no rendering surface exists yet.
	StateUninitialized State = iota
	// StateSurfaceReady means renderer resources exist but no frame ran.
	StateSurfaceReady
	// StateRendering is the steady state after the first frame.
	StateRendering
	// StatePaused mirrors a hidden host; frames do no work.
	StatePaused
	// StateDestroyed is terminal.
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSurfaceReady:
		return "surface-ready"
	case StateRendering:
		return "rendering"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func isAllowedTransition(from, to State) bool {
	if to == StateDestroyed {
		return from != StateDestroyed
	}
	switch from {
	case StateUninitialized:
		return to == StateSurfaceReady || to == StatePaused
	case StateSurfaceReady, StateRendering:
		return to == StateSurfaceReady || to == StateRendering || to == StatePaused || to == StateUninitialized
	case StatePaused:
		return to == StateUninitialized || to == StateSurfaceReady || to == StateRendering
	default:
		return false
	}
}

// RenderLoop drives one AR session frame by frame: it advances the
// session, turns taps into anchors, draws the camera preview, projects and
// samples every anchor, and publishes the resulting ProbeState.
//
// Lifecycle methods and DrawFrame are serialized, so two frames never
// overlap and Destroy waits for a running frame. ProduceTap, CaptureSingle,
// CaptureAll and SelectProbe may be called from any goroutine at any time.
type RenderLoop struct {
	mu       sync.Mutex
	state    State
	resumeTo State
	surface  bool

	session  ar.Session
	renderer Renderer
	taps     *TapQueue
	anchors  *AnchorStore
	creator  *AnchorCreator
	board    *ProbeBoard
	capturer *Capturer
	metrics  MetricsCollector
	now      func() time.Time

	displayW, displayH int

	// Owned by the frame step.
	probes  ProbeState
	pruned  []AnchorID
	capture atomic.Int32
	active  atomic.Uint64
}

// NewRenderLoop creates a loop for session that draws with renderer.
// The loop starts Uninitialized; call SurfaceCreated before DrawFrame.
func NewRenderLoop(session ar.Session, renderer Renderer, opts ...Option) *RenderLoop {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.taps == nil {
		o.taps = NewTapQueue()
	}
	if o.anchors == nil {
		o.anchors = NewAnchorStore()
	}
	if o.board == nil {
		o.board = NewProbeBoard()
	}

	return &RenderLoop{
		state:    StateUninitialized,
		session:  session,
		renderer: renderer,
		taps:     o.taps,
		anchors:  o.anchors,
		creator:  NewAnchorCreator(o.taps, o.anchors, o.maxHitDistance, o.metrics),
		board:    o.board,
		capturer: o.capturer,
		metrics:  o.metrics,
		now:      o.now,
	}
}

// State returns the current lifecycle state.
func (l *RenderLoop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Probes returns the board the loop publishes to.
func (l *RenderLoop) Probes() *ProbeBoard { return l.board }

// Anchors returns the loop's anchor store.
func (l *RenderLoop) Anchors() *AnchorStore { return l.anchors }

// ProduceTap queues a tap at view pixel (x, y). It reports false when the
// tap was dropped by the queue bound.
func (l *RenderLoop) ProduceTap(x, y float32) bool {
	return l.taps.ProduceTap(x, y)
}

// CaptureSingle requests that the next available camera image is stored
// together with the active probe's color.
func (l *RenderLoop) CaptureSingle() {
	l.capture.Store(int32(CaptureSingle))
}

// CaptureAll requests that the next available camera image is stored with
// a palette of every visible probe, after which all anchors are cleared.
func (l *RenderLoop) CaptureAll() {
	l.capture.Store(int32(CaptureAll))
}

// CaptureStatus returns the pending capture request.
func (l *RenderLoop) CaptureStatus() CaptureStatus {
	return CaptureStatus(l.capture.Load())
}

// SelectProbe makes id the active probe for single captures. Zero clears
// the selection, which falls back to the visible probe nearest the display
// centre.
func (l *RenderLoop) SelectProbe(id AnchorID) {
	l.active.Store(uint64(id))
}

// transition moves to state to. Callers hold l.mu.
func (l *RenderLoop) transition(to State) error {
	if !isAllowedTransition(l.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
	}
	if l.state != to {
		Logger().Debug("arprobe: render loop state", "from", l.state, "to", to)
	}
	l.state = to
	return nil
}

// SurfaceCreated allocates renderer resources for a new surface. When a
// surface already existed its resources are released first; anchors are
// kept. A setup error is fatal for the surface.
func (l *RenderLoop) SurfaceCreated() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDestroyed {
		return ErrDestroyed
	}

	if l.surface {
		l.renderer.Release()
		l.surface = false
	}
	if err := l.renderer.Setup(); err != nil {
		if l.state == StatePaused {
			l.resumeTo = StateUninitialized
		} else {
			l.state = StateUninitialized
		}
		return fmt.Errorf("arprobe: %s renderer setup: %w", l.renderer.Name(), err)
	}
	l.surface = true
	if l.displayW > 0 && l.displayH > 0 {
		l.renderer.Resize(l.displayW, l.displayH)
	}
	Logger().Info("arprobe: surface ready", "renderer", l.renderer.Name())

	if l.state == StatePaused {
		l.resumeTo = StateSurfaceReady
		return nil
	}
	return l.transition(StateSurfaceReady)
}

// SurfaceChanged forwards the display size and rotation to the session
// and the renderer.
func (l *RenderLoop) SurfaceChanged(width, height int, rotation ar.Rotation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDestroyed {
		return ErrDestroyed
	}
	l.displayW, l.displayH = width, height
	l.session.SetDisplayGeometry(rotation, width, height)
	if l.surface {
		l.renderer.Resize(width, height)
	}
	return nil
}

// Pause pauses the session. Frames do no work until Resume.
func (l *RenderLoop) Pause() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateDestroyed:
		return ErrDestroyed
	case StatePaused:
		return nil
	}
	if err := l.session.Pause(); err != nil {
		return fmt.Errorf("arprobe: pause session: %w", err)
	}
	l.resumeTo = l.state
	return l.transition(StatePaused)
}

// Resume resumes the session. After a Pause the loop returns to the state
// it was paused in; otherwise only the session is resumed.
func (l *RenderLoop) Resume() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDestroyed {
		return ErrDestroyed
	}
	if err := l.session.Resume(); err != nil {
		return fmt.Errorf("arprobe: resume session: %w", err)
	}
	if l.state != StatePaused {
		return nil
	}
	return l.transition(l.resumeTo)
}

// Destroy releases the renderer, detaches every anchor and closes the
// session. It is valid in every state and idempotent.
func (l *RenderLoop) Destroy() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDestroyed {
		return nil
	}

	if l.surface {
		l.renderer.Release()
		l.surface = false
	}
	released := l.anchors.ClearAndRelease()
	err := l.session.Close()
	l.state = StateDestroyed
	Logger().Info("arprobe: render loop destroyed", "anchors", released.GetCardinality())
	if err != nil {
		return fmt.Errorf("arprobe: close session: %w", err)
	}
	return nil
}

// DrawFrame runs one frame. A frame that fails because the camera is
// unavailable is skipped and nil is returned; the last published state
// stays valid. Other failures abandon the frame and are returned.
func (l *RenderLoop) DrawFrame(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateUninitialized:
		return ErrSurfaceNotReady
	case StatePaused:
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := l.step()
	if terr := l.transition(StateRendering); terr != nil {
		return terr
	}
	return err
}

// step is one frame. Callers hold l.mu.
func (l *RenderLoop) step() error {
	start := l.now()

	frame, err := l.session.Update()
	if err != nil {
		return l.abandon("update session", err)
	}

	l.creator.Process(frame)
	l.pruned = append(l.pruned, l.anchors.PruneStopped()...)

	if err := l.renderer.DrawPreview(frame); err != nil {
		return l.abandon("draw preview", err)
	}

	projections := ProjectAnchors(frame, l.anchors.All())
	texCoords := TextureCoordinates(frame, projections)

	sampleStart := l.now()
	colors, err := l.renderer.SampleColors(frame, texCoords)
	if err != nil {
		return l.abandon("sample colors", err)
	}
	if len(colors) != len(projections) {
		return l.abandon("sample colors", fmt.Errorf("got %d colors for %d coordinates", len(colors), len(projections)))
	}
	l.metrics.RecordSamples(len(colors), l.now().Sub(sampleStart))

	updates := make([]Probe, len(projections))
	for i, p := range projections {
		updates[i] = Probe{ID: p.ID, Color: colors[i], Position: p.Position, Visible: true}
	}
	state := l.probes.Settle().Merge(updates).Hide(idBitmap(l.pruned))
	l.pruned = l.pruned[:0]

	state = l.handleCapture(frame, state)

	l.board.Publish(state)
	l.probes = state
	l.metrics.RecordFrame(l.now().Sub(start), state.Len())
	Logger().Debug("arprobe: frame published", "probes", state.Len(), "projected", len(projections))
	return nil
}

// abandon logs and classifies a failed frame.
func (l *RenderLoop) abandon(step string, err error) error {
	if errors.Is(err, ar.ErrCameraNotAvailable) || errors.Is(err, ar.ErrSessionPaused) {
		l.metrics.RecordFrameSkipped(FrameCameraUnavailable)
		Logger().Warn("arprobe: frame skipped", "step", step, "err", err)
		return nil
	}
	l.metrics.RecordFrameSkipped(FrameFailed)
	return fmt.Errorf("arprobe: %s: %w", step, err)
}

// handleCapture hands a pending capture to the capturer and returns the
// state to publish.
func (l *RenderLoop) handleCapture(frame ar.Frame, state ProbeState) ProbeState {
	status := CaptureStatus(l.capture.Load())
	if status == CaptureNone {
		return state
	}

	probes := l.captureProbes(status, state)
	if len(probes) == 0 {
		l.capture.CompareAndSwap(int32(status), int32(CaptureNone))
		Logger().Debug("arprobe: nothing to capture", "status", status)
		return state
	}
	if l.capturer == nil {
		l.capture.CompareAndSwap(int32(status), int32(CaptureNone))
		Logger().Warn("arprobe: capture requested without a capturer", "status", status)
		return state
	}

	img, err := frame.AcquireCameraImage()
	if err != nil {
		// The request stays pending and is retried next frame.
		Logger().Debug("arprobe: camera image not acquired", "status", status, "err", err)
		return state
	}
	l.capture.CompareAndSwap(int32(status), int32(CaptureNone))
	l.capturer.Submit(CaptureRequest{Status: status, Image: img, Probes: probes, At: l.now()})

	if status == CaptureAll {
		released := l.anchors.ClearAndRelease()
		state = state.HideAll()
		Logger().Info("arprobe: anchors cleared after capture", "released", released.GetCardinality())
	}
	return state
}

// captureProbes selects the probes a capture stores.
func (l *RenderLoop) captureProbes(status CaptureStatus, state ProbeState) []Probe {
	if status == CaptureAll {
		return state.Visible()
	}
	if id := AnchorID(l.active.Load()); id != 0 {
		if p, ok := state.Get(id); ok && p.Visible {
			return []Probe{p}
		}
	}
	p, ok := nearestProbe(state.Visible(), Coordinate{X: float32(l.displayW) / 2, Y: float32(l.displayH) / 2})
	if !ok {
		return nil
	}
	return []Probe{p}
}

// nearestProbe returns the probe closest to c; ties go to the lower id.
func nearestProbe(probes []Probe, c Coordinate) (Probe, bool) {
	var best Probe
	found := false
	var bestDist float32
	for _, p := range probes {
		d := p.Position.Sub(c).LenSqr()
		if !found || d < bestDist {
			best, bestDist, found = p, d, true
		}
	}
	return best, found
}
