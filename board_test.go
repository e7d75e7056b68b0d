package arprobe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeBoard_Snapshot(t *testing.T) {
	b := NewProbeBoard()
	assert.Zero(t, b.Snapshot().Len())
	assert.Zero(t, b.Version())

	s := ProbeState{}.Merge([]Probe{probe(1, RGB(1, 2, 3))})
	b.Publish(s)
	assert.Equal(t, s, b.Snapshot())
	assert.Equal(t, uint64(1), b.Version())
}

func TestProbeBoard_SubscribeLatestWins(t *testing.T) {
	b := NewProbeBoard()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 1; i <= 3; i++ {
		b.Publish(ProbeState{}.Merge([]Probe{probe(AnchorID(i), RGB(0, 0, 0))}))
	}

	got := <-ch
	assert.Equal(t, []AnchorID{3}, got.IDs(), "slow reader sees only the newest state")
	assert.Equal(t, uint64(2), b.Dropped())

	select {
	case s := <-ch:
		t.Fatalf("unexpected extra state %v", s.IDs())
	default:
	}
}

func TestProbeBoard_CancelClosesChannel(t *testing.T) {
	b := NewProbeBoard()
	ch, cancel := b.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(ProbeState{}) // must not panic on a closed subscription
}

func TestProbeBoard_ConcurrentReaders(t *testing.T) {
	b := NewProbeBoard()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				s := b.Snapshot()
				for _, p := range s.Probes() {
					assert.True(t, p.Visible)
				}
			}
		}()
	}
	for i := range 200 {
		b.Publish(ProbeState{}.Merge([]Probe{probe(AnchorID(i+1), RGB(1, 1, 1))}))
	}
	wg.Wait()
}
