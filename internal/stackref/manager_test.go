package stackref

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	m := NewManager()
	t1 := Triplet{ThreadIndex: 0, FrameIndex: 1, Path: []string{"foo", "bar"}}
	id := m.GetOrAllocate(t1)

	got, ok := m.Decode(id)
	require.True(t, ok)
	require.Equal(t, t1, got)
}

func TestDistinctTripletsGetDistinctIDs(t *testing.T) {
	m := NewManager()
	id1 := m.GetOrAllocate(Triplet{ThreadIndex: 0, FrameIndex: 0})
	id2 := m.GetOrAllocate(Triplet{ThreadIndex: 0, FrameIndex: 1})
	require.NotEqual(t, id1, id2)
}

func TestSameTripletReturnsSameID(t *testing.T) {
	m := NewManager()
	tr := Triplet{ThreadIndex: 2, FrameIndex: 3, Path: []string{"a"}}
	id1 := m.GetOrAllocate(tr)
	id2 := m.GetOrAllocate(tr)
	require.Equal(t, id1, id2)
}

func TestPathEntryWithSeparatorDoesNotCollide(t *testing.T) {
	m := NewManager()
	id1 := m.GetOrAllocate(Triplet{ThreadIndex: 0, FrameIndex: 0, Path: []string{"a|b"}})
	id2 := m.GetOrAllocate(Triplet{ThreadIndex: 0, FrameIndex: 0, Path: []string{"a", "b"}})
	require.NotEqual(t, id1, id2)
}

func TestMultiSegmentPathDoesNotCollideWithEscapedSingleSegment(t *testing.T) {
	m := NewManager()
	id1 := m.GetOrAllocate(Triplet{ThreadIndex: 1, FrameIndex: 2, Path: []string{"a", "vbar;b"}})
	id2 := m.GetOrAllocate(Triplet{ThreadIndex: 1, FrameIndex: 2, Path: []string{"a|b"}})
	require.NotEqual(t, id1, id2)
}

func TestGetChild(t *testing.T) {
	m := NewManager()
	parent := m.GetOrAllocate(Triplet{ThreadIndex: 0, FrameIndex: 0})
	child, err := m.GetChild(parent, "member")
	require.NoError(t, err)

	decoded, ok := m.Decode(child)
	require.True(t, ok)
	require.Equal(t, []string{"member"}, decoded.Path)
}

func TestDecodeUnknownIDIsError(t *testing.T) {
	m := NewManager()
	_, ok := m.Decode(9999)
	require.False(t, ok)
}
