package arprobe

import "time"

// Option configures a RenderLoop during creation.
//
// Example:
//
//	loop := arprobe.NewRenderLoop(session, arprobe.DefaultRenderer(),
//	    arprobe.WithCapturer(capturer),
//	    arprobe.WithMetrics(&arprobe.BasicMetricsCollector{}),
//	)
type Option func(*options)

// options holds optional configuration for a RenderLoop.
type options struct {
	taps           *TapQueue
	anchors        *AnchorStore
	board          *ProbeBoard
	capturer       *Capturer
	metrics        MetricsCollector
	maxHitDistance float32
	now            func() time.Time
}

// defaultOptions returns the default render loop options.
func defaultOptions() options {
	return options{
		metrics:        NoopMetricsCollector{},
		maxHitDistance: DefaultMaxHitDistance,
		now:            time.Now,
	}
}

// WithTapQueue sets the queue the UI produces taps into. By default the
// loop creates one with DefaultTapCapacity.
func WithTapQueue(q *TapQueue) Option {
	return func(o *options) {
		o.taps = q
	}
}

// WithAnchorStore sets the anchor store, for example one built with a
// shared Sequence.
func WithAnchorStore(s *AnchorStore) Option {
	return func(o *options) {
		o.anchors = s
	}
}

// WithProbeBoard sets the board probe states are published to.
func WithProbeBoard(b *ProbeBoard) Option {
	return func(o *options) {
		o.board = b
	}
}

// WithCapturer enables captures. Without a capturer, capture requests are
// consumed and dropped with a warning.
func WithCapturer(c *Capturer) Option {
	return func(o *options) {
		o.capturer = c
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMaxHitDistance sets the hit-test range in metres.
func WithMaxHitDistance(d float32) Option {
	return func(o *options) {
		if d > 0 {
			o.maxHitDistance = d
		}
	}
}
