package arprobe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/arprobe/ar"
)

// CaptureStatus selects what the next camera image is captured for.
type CaptureStatus int32

const (
	// CaptureNone means no capture is pending.
	CaptureNone CaptureStatus = iota
	// CaptureSingle stores the photo and the active probe's color.
	CaptureSingle
	// CaptureAll stores the photo and a palette of every visible probe,
	// then clears all anchors.
	CaptureAll
)

// String returns the status name.
func (s CaptureStatus) String() string {
	switch s {
	case CaptureNone:
		return "none"
	case CaptureSingle:
		return "single"
	case CaptureAll:
		return "all"
	default:
		return fmt.Sprintf("CaptureStatus(%d)", int32(s))
	}
}

// PhotoRecord is a stored snapshot photo.
type PhotoRecord struct {
	ID         int64
	URI        string
	CapturedAt time.Time
}

// PaletteRecord groups the colors captured together. An empty Name means
// the palette is unnamed.
type PaletteRecord struct {
	ID         int64
	Name       string
	CapturedAt time.Time
}

// ColorRecord is one captured color. Zero PaletteID or PhotoID means the
// color has no palette or photo.
type ColorRecord struct {
	ID         int64
	PaletteID  int64
	PhotoID    int64
	Color      RGBA
	CapturedAt time.Time
}

// Hex returns the record's color as "#RRGGBB".
func (c ColorRecord) Hex() string { return c.Color.Hex() }

// Repository persists captured colors, palettes and photos.
type Repository interface {
	InsertPhoto(ctx context.Context, p PhotoRecord) (int64, error)
	InsertPalette(ctx context.Context, p PaletteRecord) (int64, error)
	InsertColor(ctx context.Context, c ColorRecord) (int64, error)
}

// PhotoStore converts and stores a raw camera image and returns its URI.
type PhotoStore interface {
	StorePhoto(ctx context.Context, img ar.CameraImage, status CaptureStatus) (string, error)
}

// CaptureRequest is one capture handed off by the render loop.
type CaptureRequest struct {
	Status CaptureStatus
	Image  ar.CameraImage
	// Probes holds the active probe for CaptureSingle and every visible
	// probe for CaptureAll.
	Probes []Probe
	At     time.Time
}

// DefaultCaptureConcurrency bounds parallel color inserts of one capture.
const DefaultCaptureConcurrency = 4

// Capturer persists captures in background goroutines so the render loop
// never waits on storage.
type Capturer struct {
	repo        Repository
	photos      PhotoStore
	ctx         context.Context
	concurrency int
	metrics     MetricsCollector

	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// CapturerOption configures a Capturer.
type CapturerOption func(*Capturer)

// WithCaptureContext sets the context passed to the repository and photo
// store. Cancelling it aborts pending captures.
func WithCaptureContext(ctx context.Context) CapturerOption {
	return func(c *Capturer) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithCaptureConcurrency bounds the parallel color inserts of one capture.
func WithCaptureConcurrency(n int) CapturerOption {
	return func(c *Capturer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithCaptureMetrics sets the collector for capture results.
func WithCaptureMetrics(m MetricsCollector) CapturerOption {
	return func(c *Capturer) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCapturer creates a capturer writing to repo and photos.
func NewCapturer(repo Repository, photos PhotoStore, opts ...CapturerOption) *Capturer {
	c := &Capturer{
		repo:        repo,
		photos:      photos,
		ctx:         context.Background(),
		concurrency: DefaultCaptureConcurrency,
		metrics:     NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts persisting req and returns immediately. The request's
// image is closed when the capture finishes.
func (c *Capturer) Submit(req CaptureRequest) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		start := time.Now()
		err := c.capture(c.ctx, req)
		c.metrics.RecordCapture(req.Status, time.Since(start), err)
		if err != nil {
			Logger().Warn("arprobe: capture failed", "status", req.Status, "err", err)
			c.mu.Lock()
			c.errs = append(c.errs, err)
			c.mu.Unlock()
			return
		}
		Logger().Info("arprobe: capture stored", "status", req.Status, "colors", len(req.Probes))
	}()
}

// Wait blocks until every submitted capture has finished and returns the
// errors collected since the previous Wait.
func (c *Capturer) Wait() error {
	c.wg.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	err := errors.Join(c.errs...)
	c.errs = nil
	return err
}

func (c *Capturer) capture(ctx context.Context, req CaptureRequest) error {
	defer func() {
		if req.Image != nil {
			if err := req.Image.Close(); err != nil {
				Logger().Warn("arprobe: close camera image", "err", err)
			}
		}
	}()

	switch req.Status {
	case CaptureSingle:
		return c.captureSingle(ctx, req)
	case CaptureAll:
		return c.captureAll(ctx, req)
	default:
		return fmt.Errorf("capture: unexpected status %v", req.Status)
	}
}

func (c *Capturer) captureSingle(ctx context.Context, req CaptureRequest) error {
	if len(req.Probes) == 0 {
		return ErrNoProbe
	}
	photoID, err := c.storePhoto(ctx, req)
	if err != nil {
		return err
	}
	_, err = c.repo.InsertColor(ctx, ColorRecord{
		PhotoID:    photoID,
		Color:      req.Probes[0].Color,
		CapturedAt: req.At,
	})
	if err != nil {
		return fmt.Errorf("capture: insert color: %w", err)
	}
	return nil
}

func (c *Capturer) captureAll(ctx context.Context, req CaptureRequest) error {
	if len(req.Probes) == 0 {
		return ErrNoProbe
	}

	var paletteID, photoID int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := c.repo.InsertPalette(gctx, PaletteRecord{CapturedAt: req.At})
		if err != nil {
			return fmt.Errorf("capture: insert palette: %w", err)
		}
		paletteID = id
		return nil
	})
	g.Go(func() error {
		id, err := c.storePhoto(gctx, req)
		photoID = id
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range req.Probes {
		g.Go(func() error {
			_, err := c.repo.InsertColor(gctx, ColorRecord{
				PaletteID:  paletteID,
				PhotoID:    photoID,
				Color:      p.Color,
				CapturedAt: req.At,
			})
			if err != nil {
				return fmt.Errorf("capture: insert color for probe %d: %w", p.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Capturer) storePhoto(ctx context.Context, req CaptureRequest) (int64, error) {
	uri, err := c.photos.StorePhoto(ctx, req.Image, req.Status)
	if err != nil {
		return 0, fmt.Errorf("capture: store photo: %w", err)
	}
	id, err := c.repo.InsertPhoto(ctx, PhotoRecord{URI: uri, CapturedAt: req.At})
	if err != nil {
		return 0, fmt.Errorf("capture: insert photo: %w", err)
	}
	return id, nil
}
