// Package breakpoint implements the dual-identity breakpoint registry:
// user-visible local ids assigned by this client, reconciled against
// remote ids assigned by the target.
package breakpoint

import (
	"strings"
	"sync"

	"github.com/samber/lo"
)

// firstLocalID is the first id handed out by the local counter (spec §4.9,
// grounded in BreakpointManager.py's local_id counter).
const firstLocalID = 1000

// Breakpoint is one registered breakpoint (spec §3).
type Breakpoint struct {
	URI         string
	Line        uint32
	IgnoreCount uint32
	Condition   string
	HasCondition bool
	LocalID     uint32
	RemoteID    uint32 // 0 means "not installed"
}

// Manager stores the set of breakpoints for one debugging session. Per
// spec §5, it is accessed from the front-end task only — no internal
// locking is required for that reason, but a mutex is kept because the
// CLI and DAP front-ends are two independent call sites that a future
// front-end could run concurrently.
type Manager struct {
	mu          sync.Mutex
	breakpoints []*Breakpoint
	nextLocalID uint32
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{nextLocalID: firstLocalID}
}

// AddOrUpdate matches an incoming breakpoint by remote id if set, else by
// (uri, line); updates the match in place or appends a new entry, then
// assigns local ids to any entry that still lacks one. Returns the
// resulting stored breakpoint.
func (m *Manager) AddOrUpdate(b Breakpoint) *Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	var existing *Breakpoint
	if b.RemoteID != 0 {
		existing, _ = lo.Find(m.breakpoints, func(e *Breakpoint) bool { return e.RemoteID == b.RemoteID })
	}
	if existing == nil {
		existing, _ = lo.Find(m.breakpoints, func(e *Breakpoint) bool { return e.URI == b.URI && e.Line == b.Line })
	}

	if existing != nil {
		existing.URI = b.URI
		existing.Line = b.Line
		existing.IgnoreCount = b.IgnoreCount
		existing.Condition = b.Condition
		existing.HasCondition = b.HasCondition
		if b.RemoteID != 0 {
			existing.RemoteID = b.RemoteID
		}
		m.assignLocalIDs()
		return existing
	}

	newBp := b
	m.breakpoints = append(m.breakpoints, &newBp)
	m.assignLocalIDs()
	return &newBp
}

// assignLocalIDs hands out local ids to any breakpoint that lacks one,
// in registration order, from the monotonic counter. Must be called with
// m.mu held.
func (m *Manager) assignLocalIDs() {
	for _, b := range m.breakpoints {
		if b.LocalID == 0 {
			b.LocalID = m.nextLocalID
			m.nextLocalID++
		}
	}
}

// RemoveByLocalID removes the breakpoint with the given local id, if any.
func (m *Manager) RemoveByLocalID(id uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, b := range m.breakpoints {
		if b.LocalID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	m.breakpoints = append(m.breakpoints[:idx], m.breakpoints[idx+1:]...)
	return true
}

// FindByLocalID looks up a breakpoint by its local id.
func (m *Manager) FindByLocalID(id uint32) (*Breakpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Find(m.breakpoints, func(b *Breakpoint) bool { return b.LocalID == id })
}

// FindByRemoteID looks up a breakpoint by its remote id.
func (m *Manager) FindByRemoteID(id uint32) (*Breakpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Find(m.breakpoints, func(b *Breakpoint) bool { return b.RemoteID == id })
}

// FindBySpec looks up a breakpoint by its exact (uri, line) location.
func (m *Manager) FindBySpec(uri string, line uint32) (*Breakpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Find(m.breakpoints, func(b *Breakpoint) bool { return b.URI == uri && b.Line == line })
}

// FindAtLine returns any registered breakpoint whose uri is a suffix of
// path, at the given line (spec §4.9).
func (m *Manager) FindAtLine(path string, line uint32) (*Breakpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Find(m.breakpoints, func(b *Breakpoint) bool {
		return b.Line == line && strings.HasSuffix(path, b.URI)
	})
}

// All returns a snapshot of every registered breakpoint.
func (m *Manager) All() []*Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Breakpoint(nil), m.breakpoints...)
}
