package arprobe

import (
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Probe is the sampled result for one anchor.
type Probe struct {
	ID       AnchorID
	Color    RGBA
	Position Coordinate // view pixels
	Visible  bool
}

// ProbeState maps anchor ids to probes. It is immutable: every method that
// changes the mapping returns a new state and leaves the receiver intact,
// so a published state can be shared with any number of readers.
//
// Probes hidden by Hide stay in the state, invisible, until the next
// Settle, which drops them. The render loop settles once per publish, so a
// hidden probe is published exactly once.
type ProbeState struct {
	probes map[AnchorID]Probe
	hidden *roaring64.Bitmap
}

// Len returns the number of probes, visible or not.
func (s ProbeState) Len() int { return len(s.probes) }

// Get returns the probe for id.
func (s ProbeState) Get(id AnchorID) (Probe, bool) {
	p, ok := s.probes[id]
	return p, ok
}

// IDs returns every id in ascending order.
func (s ProbeState) IDs() []AnchorID {
	return slices.Sorted(maps.Keys(s.probes))
}

// Probes returns every probe ordered by id.
func (s ProbeState) Probes() []Probe {
	out := make([]Probe, 0, len(s.probes))
	for _, id := range s.IDs() {
		out = append(out, s.probes[id])
	}
	return out
}

// Visible returns the visible probes ordered by id.
func (s ProbeState) Visible() []Probe {
	var out []Probe
	for _, id := range s.IDs() {
		if p := s.probes[id]; p.Visible {
			out = append(out, p)
		}
	}
	return out
}

// Map returns a copy of the mapping.
func (s ProbeState) Map() map[AnchorID]Probe {
	return maps.Clone(s.probes)
}

// Merge returns a state where every probe in updates replaces the entry
// with the same id and all other entries are unchanged.
func (s ProbeState) Merge(updates []Probe) ProbeState {
	if len(updates) == 0 {
		return s
	}
	next := s.clone()
	for _, p := range updates {
		next.probes[p.ID] = p
		next.hidden.Remove(uint64(p.ID))
	}
	return next
}

// Hide returns a state where the probes named by ids are marked invisible.
// Ids without a probe are ignored.
func (s ProbeState) Hide(ids *roaring64.Bitmap) ProbeState {
	if ids == nil || ids.IsEmpty() || len(s.probes) == 0 {
		return s
	}
	next := s.clone()
	it := ids.Iterator()
	for it.HasNext() {
		id := AnchorID(it.Next())
		p, ok := next.probes[id]
		if !ok {
			continue
		}
		p.Visible = false
		next.probes[id] = p
		next.hidden.Add(uint64(id))
	}
	return next
}

// HideAll marks every probe invisible.
func (s ProbeState) HideAll() ProbeState {
	ids := roaring64.New()
	for id := range s.probes {
		ids.Add(uint64(id))
	}
	return s.Hide(ids)
}

// Settle drops the probes hidden since the previous Settle.
func (s ProbeState) Settle() ProbeState {
	if s.hidden == nil || s.hidden.IsEmpty() {
		return s
	}
	next := ProbeState{
		probes: make(map[AnchorID]Probe, len(s.probes)),
		hidden: roaring64.New(),
	}
	for id, p := range s.probes {
		if !s.hidden.Contains(uint64(id)) {
			next.probes[id] = p
		}
	}
	return next
}

func (s ProbeState) clone() ProbeState {
	next := ProbeState{
		probes: make(map[AnchorID]Probe, len(s.probes)+1),
		hidden: roaring64.New(),
	}
	maps.Copy(next.probes, s.probes)
	if s.hidden != nil {
		next.hidden.Or(s.hidden)
	}
	return next
}

// idBitmap collects ids into a bitmap.
func idBitmap(list []AnchorID) *roaring64.Bitmap {
	b := roaring64.New()
	for _, id := range list {
		b.Add(uint64(id))
	}
	return b
}
