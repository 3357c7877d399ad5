package client

import (
	"sync"

	"github.com/bsdebug/client/internal/protocol"
)

// Result is what a pending request eventually resolves to: either the
// decoded message that matched it, or a terminal error (e.g. the
// connection died before a match arrived).
type Result struct {
	Msg protocol.Message
	Err error
}

type pendingEntry struct {
	id         uint32
	cmd        protocol.CommandCode
	callerData interface{}
	ch         chan Result
}

// Registry is the pending-request table (spec §4.6/§4.7): requests are
// registered on send and removed on match, either by request id or, for
// commands like step, by the type of an asynchronous update.
type Registry struct {
	mu      sync.Mutex
	entries map[uint32]*pendingEntry
}

// NewRegistry creates an empty pending-request registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uint32]*pendingEntry)}
}

// Add registers id as pending for cmd, with the given opaque caller data.
// Returns a channel that receives exactly one Result when the request is
// matched.
func (r *Registry) Add(id uint32, cmd protocol.CommandCode, callerData interface{}) <-chan Result {
	ch := make(chan Result, 1)
	r.mu.Lock()
	r.entries[id] = &pendingEntry{id: id, cmd: cmd, callerData: callerData, ch: ch}
	r.mu.Unlock()
	return ch
}

// CommandForRequestID implements protocol.PendingLookup.
func (r *Registry) CommandForRequestID(id uint32) (protocol.CommandCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	return e.cmd, true
}

// ResolveByID removes and delivers the result for the pending entry with
// this request id, if any. Returns false if there was no such entry.
func (r *Registry) ResolveByID(id uint32, result Result) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.ch <- result
	return true
}

// ResolveByUpdateType finds a pending entry whose command can resolve via
// an update of this type (e.g. step resolving via ALL_THREADS_STOPPED),
// removes it, and delivers result. Returns false if none matched.
func (r *Registry) ResolveByUpdateType(updateType protocol.UpdateType, result Result) bool {
	r.mu.Lock()
	var match *pendingEntry
	for id, e := range r.entries {
		if protocol.ResolvesPendingByUpdateType(e.cmd, updateType) {
			match = e
			delete(r.entries, id)
			break
		}
	}
	r.mu.Unlock()
	if match == nil {
		return false
	}
	match.ch <- result
	return true
}

// HasPending reports whether any request is outstanding.
func (r *Registry) HasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) > 0
}

// Count returns the number of outstanding requests.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// FailAll delivers err to every outstanding entry, used on shutdown/fatal
// transport errors so no front-end call blocks forever.
func (r *Registry) FailAll(err error) {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uint32]*pendingEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.ch <- Result{Err: err}
	}
}
