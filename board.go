package arprobe

import (
	"sync"
	"sync/atomic"
)

// ProbeBoard publishes ProbeState snapshots from the render goroutine to
// any number of readers.
//
// Snapshot returns the latest state without locking. Subscribers get a
// channel that always holds at most the newest unread state: a slow reader
// misses intermediate frames instead of stalling the render loop.
type ProbeBoard struct {
	current atomic.Pointer[ProbeState]
	version atomic.Uint64

	mu     sync.Mutex
	subs   map[uint64]chan ProbeState
	nextID uint64

	dropped atomic.Uint64
}

// NewProbeBoard creates a board holding an empty state.
func NewProbeBoard() *ProbeBoard {
	b := &ProbeBoard{subs: make(map[uint64]chan ProbeState)}
	b.current.Store(&ProbeState{})
	return b
}

// Publish makes s the current state and offers it to every subscriber.
// It never blocks. Publish must be called from one goroutine.
func (b *ProbeBoard) Publish(s ProbeState) {
	b.current.Store(&s)
	b.version.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Replace the unread state with the newer one.
		select {
		case <-ch:
			b.dropped.Add(1)
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Snapshot returns the most recently published state.
func (b *ProbeBoard) Snapshot() ProbeState {
	return *b.current.Load()
}

// Version returns the number of publishes so far.
func (b *ProbeBoard) Version() uint64 {
	return b.version.Load()
}

// Subscribe returns a channel receiving published states and a function
// that cancels the subscription and closes the channel.
func (b *ProbeBoard) Subscribe() (<-chan ProbeState, func()) {
	ch := make(chan ProbeState, 1)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Dropped returns how many unread states were replaced by newer ones
// across all subscribers.
func (b *ProbeBoard) Dropped() uint64 {
	return b.dropped.Load()
}
