package arprobe

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBasicMetricsCollector(t *testing.T) {
	var m BasicMetricsCollector
	m.RecordFrame(10*time.Millisecond, 3)
	m.RecordFrame(20*time.Millisecond, 5)
	m.RecordFrameSkipped(FrameCameraUnavailable)
	m.RecordTaps(4)
	m.RecordTapSkipped(TapNoHit)
	m.RecordAnchorsCreated(3)
	m.RecordSamples(5, time.Millisecond)
	m.RecordCapture(CaptureAll, time.Second, nil)
	m.RecordCapture(CaptureSingle, time.Second, errors.New("fail"))

	got := m.GetStats()
	want := BasicMetricsStats{
		Frames:         2,
		FrameAvgNanos:  int64(15 * time.Millisecond),
		FramesSkipped:  1,
		Taps:           4,
		TapsSkipped:    1,
		AnchorsCreated: 3,
		Samples:        5,
		Captures:       2,
		CaptureErrors:  1,
		LastProbeCount: 5,
	}
	if got != want {
		t.Errorf("GetStats() = %+v, want %+v", got, want)
	}
}

func TestBasicMetricsCollector_NoFrames(t *testing.T) {
	var m BasicMetricsCollector
	if got := m.GetStats().FrameAvgNanos; got != 0 {
		t.Errorf("FrameAvgNanos = %d, want 0", got)
	}
}

func TestBasicMetricsCollector_Concurrent(t *testing.T) {
	var m BasicMetricsCollector
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordCapture(CaptureAll, time.Millisecond, nil)
			m.RecordTaps(1)
		}()
	}
	wg.Wait()
	if got := m.GetStats(); got.Captures != 50 || got.Taps != 50 {
		t.Errorf("GetStats() = %+v, want 50 captures and 50 taps", got)
	}
}

// Compile-time interface checks.
var (
	_ MetricsCollector = NoopMetricsCollector{}
	_ MetricsCollector = (*BasicMetricsCollector)(nil)
)
