package breakpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAddTwoBreakpointsScenario3 mirrors spec §8 scenario 3.
func TestAddTwoBreakpointsScenario3(t *testing.T) {
	m := NewManager()

	b1 := m.AddOrUpdate(Breakpoint{URI: "pkg:/source/main.brs", Line: 10, RemoteID: 1001})
	b2 := m.AddOrUpdate(Breakpoint{URI: "pkg:/source/main.brs", Line: 20, IgnoreCount: 5, RemoteID: 1002})

	require.Equal(t, uint32(1000), b1.LocalID)
	require.Equal(t, uint32(1001), b1.RemoteID)
	require.Equal(t, uint32(1001), b2.LocalID)
	require.Equal(t, uint32(1002), b2.RemoteID)
	require.Len(t, m.All(), 2)
}

func TestAddOrUpdateIdempotence(t *testing.T) {
	m := NewManager()
	b1 := m.AddOrUpdate(Breakpoint{URI: "pkg:/a.brs", Line: 1})
	originalLocalID := b1.LocalID

	b2 := m.AddOrUpdate(Breakpoint{URI: "pkg:/a.brs", Line: 1, IgnoreCount: 3})

	require.Len(t, m.All(), 1)
	require.Equal(t, originalLocalID, b2.LocalID)
	require.Equal(t, uint32(3), b2.IgnoreCount)
}

func TestMatchByRemoteIDPrefersOverLocation(t *testing.T) {
	m := NewManager()
	b1 := m.AddOrUpdate(Breakpoint{URI: "pkg:/a.brs", Line: 1, RemoteID: 5})
	b2 := m.AddOrUpdate(Breakpoint{URI: "pkg:/b.brs", Line: 2, RemoteID: 5})

	require.Equal(t, b1.LocalID, b2.LocalID)
	require.Equal(t, "pkg:/b.brs", b2.URI)
	require.Len(t, m.All(), 1)
}

func TestFindAtLineMatchesSuffix(t *testing.T) {
	m := NewManager()
	m.AddOrUpdate(Breakpoint{URI: "source/main.brs", Line: 42})

	found, ok := m.FindAtLine("pkg:/source/main.brs", 42)
	require.True(t, ok)
	require.Equal(t, "source/main.brs", found.URI)

	_, ok = m.FindAtLine("pkg:/source/main.brs", 43)
	require.False(t, ok)
}

func TestRemoveByLocalID(t *testing.T) {
	m := NewManager()
	b := m.AddOrUpdate(Breakpoint{URI: "a.brs", Line: 1})
	require.True(t, m.RemoveByLocalID(b.LocalID))
	require.Empty(t, m.All())
	require.False(t, m.RemoveByLocalID(b.LocalID))
}
