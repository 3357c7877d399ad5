// Package obslog provides a slog.Handler ring buffer, generalized from
// the teacher's internal/core/log/streamer.go app-log ring buffer to
// structured log records, plus a constructor that fans a logger out to
// both stderr and the ring buffer.
package obslog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
)

// Record is one captured log entry.
type Record struct {
	ID      string
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// RingHandler is a slog.Handler that keeps the last capacity records in
// memory for runtime/test introspection, mirroring the teacher's
// Streamer.GetAll/GetFiltered shape and original_source's
// set_save_output/get_saved_lines idiom.
type RingHandler struct {
	mu       sync.Mutex
	buf      []Record
	head     int
	count    int
	capacity int
	attrs    []slog.Attr
	group    string
	// root owns the buffer; handlers derived via WithAttrs/WithGroup
	// record into it, so their records show up in the original's All.
	root *RingHandler
}

// NewRingHandler creates a handler retaining up to capacity records
// (defaults to 1000 if capacity <= 0, matching the teacher's default).
func NewRingHandler(capacity int) *RingHandler {
	if capacity <= 0 {
		capacity = 1000
	}
	h := &RingHandler{buf: make([]Record, capacity), capacity: capacity}
	h.root = h
	return h
}

func (h *RingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *RingHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	rec := Record{
		ID:      uuid.New().String(),
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	}

	root := h.root
	root.mu.Lock()
	defer root.mu.Unlock()
	root.buf[root.head] = rec
	root.head = (root.head + 1) % root.capacity
	if root.count < root.capacity {
		root.count++
	}
	return nil
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = name
	return &clone
}

// All returns every retained record, oldest first.
func (h *RingHandler) All() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Record, 0, h.count)
	start := (h.head - h.count + h.capacity) % h.capacity
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(start+i)%h.capacity])
	}
	return out
}

// Count returns the number of retained records.
func (h *RingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// NewLogger builds a slog.Logger that writes to both stderrHandler and a
// fresh RingHandler (returned so callers can inspect it in tests), using
// slog-multi's fan-out handler.
func NewLogger(stderrHandler slog.Handler, ringCapacity int) (*slog.Logger, *RingHandler) {
	ring := NewRingHandler(ringCapacity)
	fanout := slogmulti.Fanout(stderrHandler, ring)
	return slog.New(fanout), ring
}
