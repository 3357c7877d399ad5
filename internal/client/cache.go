package client

import (
	"sync"

	"github.com/bsdebug/client/internal/protocol"
)

// VariablesKey identifies one cached variables response: a stack reference
// handle plus whether the request asked for child keys only.
type VariablesKey struct {
	StackRefID   int64
	GetChildKeys bool
}

// Cache holds the threads/stacktrace/variables state the front-end reads
// between stops, invalidated per spec on THREAD_ATTACHED, ALL_THREADS_STOPPED
// and on sending continue/step/exitChannel.
type Cache struct {
	mu          sync.Mutex
	threads     *protocol.ThreadsResponse
	stacktraces map[uint32]protocol.StacktraceResponse
	variables   map[VariablesKey]protocol.VariablesResponse
}

// NewCache creates an empty cache, exported for use by front-end test harnesses.
func NewCache() *Cache {
	return &Cache{
		stacktraces: make(map[uint32]protocol.StacktraceResponse),
		variables:   make(map[VariablesKey]protocol.VariablesResponse),
	}
}

// InvalidateAll drops every cached thread, stacktrace and variable.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads = nil
	c.stacktraces = make(map[uint32]protocol.StacktraceResponse)
	c.variables = make(map[VariablesKey]protocol.VariablesResponse)
}

// InvalidateVariables drops only the variables cache, used whenever a fresh
// stacktrace response arrives since frame var paths no longer apply.
func (c *Cache) InvalidateVariables() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables = make(map[VariablesKey]protocol.VariablesResponse)
}

func (c *Cache) SetThreads(resp protocol.ThreadsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := resp
	c.threads = &cp
}

func (c *Cache) GetThreads() (protocol.ThreadsResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.threads == nil {
		return protocol.ThreadsResponse{}, false
	}
	return *c.threads, true
}

// SetStacktrace records resp for threadIndex and invalidates variables,
// since any previously cached var path is relative to the old stack shape.
func (c *Cache) SetStacktrace(threadIndex uint32, resp protocol.StacktraceResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stacktraces[threadIndex] = resp
	c.variables = make(map[VariablesKey]protocol.VariablesResponse)
}

func (c *Cache) GetStacktrace(threadIndex uint32) (protocol.StacktraceResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.stacktraces[threadIndex]
	return resp, ok
}

func (c *Cache) SetVariables(key VariablesKey, resp protocol.VariablesResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = resp
}

func (c *Cache) GetVariables(key VariablesKey) (protocol.VariablesResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.variables[key]
	return resp, ok
}
