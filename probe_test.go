package arprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(id AnchorID, c RGBA) Probe {
	return Probe{ID: id, Color: c, Position: Pt(float32(id), float32(id)), Visible: true}
}

func TestProbeState_Merge(t *testing.T) {
	var s ProbeState
	s1 := s.Merge([]Probe{probe(1, RGB(1, 1, 1)), probe(2, RGB(2, 2, 2))})
	s2 := s1.Merge([]Probe{probe(2, RGB(9, 9, 9)), probe(3, RGB(3, 3, 3))})

	assert.Zero(t, s.Len())
	assert.Equal(t, 2, s1.Len(), "merge does not mutate the receiver")
	assert.Equal(t, []AnchorID{1, 2, 3}, s2.IDs())

	p1, _ := s2.Get(1)
	p2, _ := s2.Get(2)
	assert.Equal(t, RGB(1, 1, 1), p1.Color, "unchanged entries are kept")
	assert.Equal(t, RGB(9, 9, 9), p2.Color)

	old, _ := s1.Get(2)
	assert.Equal(t, RGB(2, 2, 2), old.Color)
}

func TestProbeState_HideSurvivesOnePublish(t *testing.T) {
	s := ProbeState{}.Merge([]Probe{probe(1, RGB(1, 1, 1)), probe(2, RGB(2, 2, 2))})

	hidden := s.Hide(idBitmap([]AnchorID{1, 7}))
	require.Equal(t, 2, hidden.Len())
	p1, _ := hidden.Get(1)
	assert.False(t, p1.Visible)
	assert.Equal(t, RGB(1, 1, 1), p1.Color, "hidden probes keep their last color")
	assert.Equal(t, []Probe{probe(2, RGB(2, 2, 2))}, hidden.Visible())

	settled := hidden.Settle()
	assert.Equal(t, []AnchorID{2}, settled.IDs())
	assert.Equal(t, settled, settled.Settle(), "settling twice is stable")
}

func TestProbeState_HideAll(t *testing.T) {
	s := ProbeState{}.Merge([]Probe{probe(4, RGB(1, 1, 1)), probe(5, RGB(2, 2, 2))})
	h := s.HideAll()
	assert.Empty(t, h.Visible())
	assert.Equal(t, 2, h.Len())
	assert.Zero(t, h.Settle().Len())
	assert.Len(t, s.Visible(), 2)
}

func TestProbeState_MergeUnhides(t *testing.T) {
	s := ProbeState{}.Merge([]Probe{probe(1, RGB(1, 1, 1))}).Hide(idBitmap([]AnchorID{1}))
	s = s.Merge([]Probe{probe(1, RGB(5, 5, 5))})
	assert.Equal(t, 1, s.Settle().Len())
}

func TestProbeState_Map(t *testing.T) {
	s := ProbeState{}.Merge([]Probe{probe(1, RGB(1, 1, 1))})
	m := s.Map()
	delete(m, 1)
	assert.Equal(t, 1, s.Len())
}
