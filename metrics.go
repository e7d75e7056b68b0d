package arprobe

import (
	"sync/atomic"
	"time"
)

// Reasons a frame was abandoned, as reported to MetricsCollector.
const (
	FrameCameraUnavailable = "camera_unavailable"
	FrameFailed            = "failed"
)

// MetricsCollector receives render loop and capture measurements.
// Implementations must be safe for concurrent use: captures report from
// background goroutines.
type MetricsCollector interface {
	// RecordFrame is called after each published frame.
	RecordFrame(duration time.Duration, probes int)

	// RecordFrameSkipped is called when a frame is abandoned.
	RecordFrameSkipped(reason string)

	// RecordTaps is called with the number of taps drained in a frame.
	RecordTaps(count int)

	// RecordTapSkipped is called for each tap that produced no anchor.
	RecordTapSkipped(reason string)

	// RecordAnchorsCreated is called with the size of each stored batch.
	RecordAnchorsCreated(count int)

	// RecordSamples is called after each sampling pass.
	RecordSamples(count int, duration time.Duration)

	// RecordCapture is called when a capture finishes; err is nil on success.
	RecordCapture(status CaptureStatus, duration time.Duration, err error)
}

// NoopMetricsCollector discards all measurements.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFrame(time.Duration, int)                    {}
func (NoopMetricsCollector) RecordFrameSkipped(string)                         {}
func (NoopMetricsCollector) RecordTaps(int)                                    {}
func (NoopMetricsCollector) RecordTapSkipped(string)                           {}
func (NoopMetricsCollector) RecordAnchorsCreated(int)                          {}
func (NoopMetricsCollector) RecordSamples(int, time.Duration)                  {}
func (NoopMetricsCollector) RecordCapture(CaptureStatus, time.Duration, error) {}

// BasicMetricsCollector keeps counters in memory.
type BasicMetricsCollector struct {
	Frames          atomic.Int64
	FrameTotalNanos atomic.Int64
	FramesSkipped   atomic.Int64
	Taps            atomic.Int64
	TapsSkipped     atomic.Int64
	AnchorsCreated  atomic.Int64
	Samples         atomic.Int64
	SampleNanos     atomic.Int64
	Captures        atomic.Int64
	CaptureErrors   atomic.Int64
	LastProbeCount  atomic.Int64
}

// RecordFrame implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrame(duration time.Duration, probes int) {
	b.Frames.Add(1)
	b.FrameTotalNanos.Add(duration.Nanoseconds())
	b.LastProbeCount.Store(int64(probes))
}

// RecordFrameSkipped implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrameSkipped(string) {
	b.FramesSkipped.Add(1)
}

// RecordTaps implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTaps(count int) {
	b.Taps.Add(int64(count))
}

// RecordTapSkipped implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTapSkipped(string) {
	b.TapsSkipped.Add(1)
}

// RecordAnchorsCreated implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAnchorsCreated(count int) {
	b.AnchorsCreated.Add(int64(count))
}

// RecordSamples implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSamples(count int, duration time.Duration) {
	b.Samples.Add(int64(count))
	b.SampleNanos.Add(duration.Nanoseconds())
}

// RecordCapture implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCapture(_ CaptureStatus, _ time.Duration, err error) {
	b.Captures.Add(1)
	if err != nil {
		b.CaptureErrors.Add(1)
	}
}

// GetStats returns a snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Frames:         b.Frames.Load(),
		FramesSkipped:  b.FramesSkipped.Load(),
		Taps:           b.Taps.Load(),
		TapsSkipped:    b.TapsSkipped.Load(),
		AnchorsCreated: b.AnchorsCreated.Load(),
		Samples:        b.Samples.Load(),
		Captures:       b.Captures.Load(),
		CaptureErrors:  b.CaptureErrors.Load(),
		LastProbeCount: b.LastProbeCount.Load(),
	}
	if s.Frames > 0 {
		s.FrameAvgNanos = b.FrameTotalNanos.Load() / s.Frames
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	Frames         int64
	FrameAvgNanos  int64
	FramesSkipped  int64
	Taps           int64
	TapsSkipped    int64
	AnchorsCreated int64
	Samples        int64
	Captures       int64
	CaptureErrors  int64
	LastProbeCount int64
}
