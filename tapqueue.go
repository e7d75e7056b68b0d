package arprobe

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTapCapacity is the number of pending taps a TapQueue holds before
// it starts dropping new ones.
const DefaultTapCapacity = 64

// TapQueue is a FIFO of pending taps in view pixels. Any number of
// goroutines may call ProduceTap; one consumer calls DrainTaps per frame.
//
// The queue is bounded: when Capacity taps are pending, further taps are
// dropped and counted until the consumer drains. An optional rate limit
// drops taps arriving faster than the configured rate.
type TapQueue struct {
	mu       sync.Mutex
	taps     []Coordinate
	capacity int
	limiter  *rate.Limiter
	now      func() time.Time

	dropped atomic.Uint64
}

// TapQueueOption configures a TapQueue.
type TapQueueOption func(*TapQueue)

// WithTapCapacity sets the maximum number of pending taps. Values below 1
// are ignored.
func WithTapCapacity(n int) TapQueueOption {
	return func(q *TapQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithTapRate limits accepted taps to r per second with bursts of up to
// burst taps.
func WithTapRate(r rate.Limit, burst int) TapQueueOption {
	return func(q *TapQueue) {
		q.limiter = rate.NewLimiter(r, burst)
	}
}

// NewTapQueue creates an empty queue.
func NewTapQueue(opts ...TapQueueOption) *TapQueue {
	q := &TapQueue{
		capacity: DefaultTapCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// ProduceTap enqueues a tap at view pixel (x, y). It never blocks and
// reports whether the tap was accepted.
func (q *TapQueue) ProduceTap(x, y float32) bool {
	if q.limiter != nil && !q.limiter.AllowN(q.now(), 1) {
		q.dropped.Add(1)
		return false
	}

	q.mu.Lock()
	if len(q.taps) >= q.capacity {
		q.mu.Unlock()
		q.dropped.Add(1)
		return false
	}
	q.taps = append(q.taps, Coordinate{X: x, Y: y})
	q.mu.Unlock()
	return true
}

// DrainTaps removes and returns every pending tap in FIFO order. It returns
// nil when nothing is pending.
func (q *TapQueue) DrainTaps() []Coordinate {
	q.mu.Lock()
	taps := q.taps
	q.taps = nil
	q.mu.Unlock()
	return taps
}

// Len returns the number of pending taps.
func (q *TapQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.taps)
}

// Dropped returns the number of taps rejected since the queue was created.
func (q *TapQueue) Dropped() uint64 {
	return q.dropped.Load()
}
