package prometheus

import (
	"errors"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/arprobe"
)

func TestCollector(t *testing.T) {
	reg := prom.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordFrame(10*time.Millisecond, 3)
	c.RecordFrame(12*time.Millisecond, 5)
	c.RecordFrameSkipped("camera")
	c.RecordFrameSkipped("camera")
	c.RecordFrameSkipped("update")
	c.RecordTaps(4)
	c.RecordTapSkipped("not_tracking")
	c.RecordAnchorsCreated(2)
	c.RecordSamples(5, time.Millisecond)
	c.RecordCapture(arprobe.CaptureAll, time.Second, nil)
	c.RecordCapture(arprobe.CaptureSingle, time.Second, errors.New("boom"))

	assert.Equal(t, 5.0, testutil.ToFloat64(c.probes))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesSkipped.WithLabelValues("camera")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesSkipped.WithLabelValues("update")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.taps))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tapsSkipped.WithLabelValues("not_tracking")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.anchorsCreated))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.samples))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captures.WithLabelValues("all", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captures.WithLabelValues("single", "error")))

	expected := `
# HELP arprobe_taps_total Taps drained by the render loop
# TYPE arprobe_taps_total counter
arprobe_taps_total 4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "arprobe_taps_total"))
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prom.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}
