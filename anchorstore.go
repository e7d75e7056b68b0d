package arprobe

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/gogpu/arprobe/ar"
)

// AnchorID is the locally minted key of an anchor. Ids are strictly
// increasing and never reused; zero means no anchor.
type AnchorID uint64

// Sequence mints AnchorIDs. It is safe for concurrent use.
type Sequence struct {
	last atomic.Uint64
}

// NewSequence returns a sequence whose first id is start+1.
func NewSequence(start uint64) *Sequence {
	s := &Sequence{}
	s.last.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequence) Next() AnchorID {
	return AnchorID(s.last.Add(1))
}

// Last returns the most recently minted id, or the start value.
func (s *Sequence) Last() AnchorID {
	return AnchorID(s.last.Load())
}

// AnchorEntry pairs an engine anchor with its local id.
type AnchorEntry struct {
	ID     AnchorID
	Anchor ar.Anchor
}

// AnchorStore maps AnchorIDs to engine anchors.
//
// Reads return copies so the render loop can iterate while other
// goroutines add anchors. Entries are kept in id order.
type AnchorStore struct {
	mu      sync.RWMutex
	seq     *Sequence
	entries []AnchorEntry
}

// AnchorStoreOption configures an AnchorStore.
type AnchorStoreOption func(*AnchorStore)

// WithSequence makes the store mint ids from seq, for example to share one
// id space between stores.
func WithSequence(seq *Sequence) AnchorStoreOption {
	return func(s *AnchorStore) {
		if seq != nil {
			s.seq = seq
		}
	}
}

// NewAnchorStore creates an empty store with its own sequence starting at 1.
func NewAnchorStore(opts ...AnchorStoreOption) *AnchorStore {
	s := &AnchorStore{seq: NewSequence(0)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a and returns its new id.
func (s *AnchorStore) Put(a ar.Anchor) AnchorID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.seq.Next()
	s.entries = append(s.entries, AnchorEntry{ID: id, Anchor: a})
	return id
}

// PutAll stores every anchor in order and returns their ids.
func (s *AnchorStore) PutAll(anchors []ar.Anchor) []AnchorID {
	if len(anchors) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]AnchorID, len(anchors))
	for i, a := range anchors {
		ids[i] = s.seq.Next()
		s.entries = append(s.entries, AnchorEntry{ID: ids[i], Anchor: a})
	}
	return ids
}

// All returns a snapshot of the stored anchors in id order.
func (s *AnchorStore) All() []AnchorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Len returns the number of stored anchors.
func (s *AnchorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ClearAndRelease empties the store and detaches every anchor that was in
// it. The returned bitmap holds the released ids. The id sequence is not
// reset.
func (s *AnchorStore) ClearAndRelease() *roaring64.Bitmap {
	s.mu.Lock()
	released := s.entries
	s.entries = nil
	s.mu.Unlock()

	ids := roaring64.New()
	for _, e := range released {
		ids.Add(uint64(e.ID))
		e.Anchor.Detach()
	}
	return ids
}

// PruneStopped removes and detaches anchors the engine no longer tracks
// and returns their ids.
func (s *AnchorStore) PruneStopped() []AnchorID {
	s.mu.Lock()
	var stopped []AnchorEntry
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if e.Anchor.TrackingState() == ar.TrackingStopped {
			stopped = append(stopped, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(stopped) > 0 {
		s.entries = kept
	}
	s.mu.Unlock()

	if len(stopped) == 0 {
		return nil
	}
	ids := make([]AnchorID, len(stopped))
	for i, e := range stopped {
		ids[i] = e.ID
		e.Anchor.Detach()
	}
	return ids
}
