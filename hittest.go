package arprobe

import (
	"errors"

	"github.com/gogpu/arprobe/ar"
)

// DefaultMaxHitDistance is the hit-test range in metres.
const DefaultMaxHitDistance = 3.0

// Reasons a tap produced no anchor, as reported to MetricsCollector.
const (
	TapNoHit        = "no_hit"
	TapNotTracked   = "not_tracked"
	TapAnchorFailed = "anchor_failed"
)

// TapSource supplies pending taps once per frame.
type TapSource interface {
	DrainTaps() []Coordinate
}

// AnchorSink receives the anchors created in one frame.
type AnchorSink interface {
	PutAll(anchors []ar.Anchor) []AnchorID
}

// AnchorCreator turns taps into anchors by hit-testing the current frame.
type AnchorCreator struct {
	taps        TapSource
	anchors     AnchorSink
	maxDistance float32
	metrics     MetricsCollector
}

// NewAnchorCreator wires a creator between a tap source and an anchor sink.
// Zero maxDistance selects DefaultMaxHitDistance; nil metrics disables
// recording.
func NewAnchorCreator(taps TapSource, anchors AnchorSink, maxDistance float32, metrics MetricsCollector) *AnchorCreator {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxHitDistance
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	return &AnchorCreator{
		taps:        taps,
		anchors:     anchors,
		maxDistance: maxDistance,
		metrics:     metrics,
	}
}

// Process drains the pending taps, hit-tests each one against frame and
// stores one anchor per tap whose nearest hit lies on a tracked surface.
// Taps that produce no anchor are consumed silently. It returns the ids of
// the new anchors, or nil.
func (c *AnchorCreator) Process(frame ar.Frame) []AnchorID {
	taps := c.taps.DrainTaps()
	if len(taps) == 0 {
		return nil
	}
	c.metrics.RecordTaps(len(taps))

	var created []ar.Anchor
	for _, tap := range taps {
		if a := c.anchorAt(frame, tap); a != nil {
			created = append(created, a)
		}
	}
	if len(created) == 0 {
		return nil
	}

	ids := c.anchors.PutAll(created)
	c.metrics.RecordAnchorsCreated(len(ids))
	Logger().Debug("arprobe: anchors created", "taps", len(taps), "anchors", len(ids))
	return ids
}

// anchorAt returns the anchor for one tap, or nil.
func (c *AnchorCreator) anchorAt(frame ar.Frame, tap Coordinate) ar.Anchor {
	hits := frame.HitTest(tap.X, tap.Y, c.maxDistance)
	if len(hits) == 0 {
		c.metrics.RecordTapSkipped(TapNoHit)
		return nil
	}

	hit := hits[0]
	if hit.Trackable().TrackingState() != ar.TrackingTracking {
		c.metrics.RecordTapSkipped(TapNotTracked)
		return nil
	}

	a, err := hit.CreateAnchor()
	if err != nil {
		c.metrics.RecordTapSkipped(TapAnchorFailed)
		if errors.Is(err, ar.ErrNotTracking) {
			Logger().Debug("arprobe: tracking lost before anchor creation", "x", tap.X, "y", tap.Y)
		} else {
			Logger().Warn("arprobe: anchor creation failed", "x", tap.X, "y", tap.Y, "err", err)
		}
		return nil
	}
	return a
}
