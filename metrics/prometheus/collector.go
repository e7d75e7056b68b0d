// Package prometheus exports render loop and capture metrics to Prometheus.
//
//	c, err := prometheus.NewCollector(prom.DefaultRegisterer)
//	loop := arprobe.NewRenderLoop(session, arprobe.WithMetrics(c))
//	http.Handle("/metrics", promhttp.Handler())
package prometheus

import (
	"errors"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/arprobe"
)

// Namespace prefixes every metric name.
const Namespace = "arprobe"

// Collector implements arprobe.MetricsCollector with Prometheus metrics.
type Collector struct {
	frameLatency   prom.Histogram
	probes         prom.Gauge
	framesSkipped  *prom.CounterVec
	taps           prom.Counter
	tapsSkipped    *prom.CounterVec
	anchorsCreated prom.Counter
	samples        prom.Counter
	sampleLatency  prom.Histogram
	captures       *prom.CounterVec
	captureLatency *prom.HistogramVec
}

var _ arprobe.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prom.Registerer) (*Collector, error) {
	c := &Collector{
		frameLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "frame_duration_seconds",
			Help:      "Duration of published frames",
			Buckets:   prom.ExponentialBuckets(0.001, 2, 10),
		}),
		probes: prom.NewGauge(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "probes",
			Help:      "Probes in the last published frame",
		}),
		framesSkipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames abandoned before publishing",
		}, []string{"reason"}),
		taps: prom.NewCounter(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "taps_total",
			Help:      "Taps drained by the render loop",
		}),
		tapsSkipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "taps_skipped_total",
			Help:      "Taps that produced no anchor",
		}, []string{"reason"}),
		anchorsCreated: prom.NewCounter(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "anchors_created_total",
			Help:      "Anchors created from taps",
		}),
		samples: prom.NewCounter(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "samples_total",
			Help:      "Colors sampled from the camera image",
		}),
		sampleLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "sample_duration_seconds",
			Help:      "Duration of sampling passes",
			Buckets:   prom.ExponentialBuckets(0.0001, 2, 12),
		}),
		captures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: Namespace,
			Name:      "captures_total",
			Help:      "Finished captures",
		}, []string{"kind", "status"}),
		captureLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: Namespace,
			Name:      "capture_duration_seconds",
			Help:      "Duration of captures",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
	}

	var errs []error
	for _, m := range []prom.Collector{
		c.frameLatency, c.probes, c.framesSkipped, c.taps, c.tapsSkipped,
		c.anchorsCreated, c.samples, c.sampleLatency, c.captures, c.captureLatency,
	} {
		if err := reg.Register(m); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collector) RecordFrame(d time.Duration, probes int) {
	c.frameLatency.Observe(d.Seconds())
	c.probes.Set(float64(probes))
}

func (c *Collector) RecordFrameSkipped(reason string) {
	c.framesSkipped.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordTaps(count int) {
	c.taps.Add(float64(count))
}

func (c *Collector) RecordTapSkipped(reason string) {
	c.tapsSkipped.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordAnchorsCreated(count int) {
	c.anchorsCreated.Add(float64(count))
}

func (c *Collector) RecordSamples(count int, d time.Duration) {
	c.samples.Add(float64(count))
	c.sampleLatency.Observe(d.Seconds())
}

func (c *Collector) RecordCapture(kind arprobe.CaptureStatus, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.captures.WithLabelValues(kind.String(), status).Inc()
	c.captureLatency.WithLabelValues(kind.String()).Observe(d.Seconds())
}
