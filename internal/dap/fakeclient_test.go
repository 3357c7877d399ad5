package dap

import (
	"context"
	"sync"

	"github.com/bsdebug/client/internal/client"
	"github.com/bsdebug/client/internal/protocol"
)

// fakeDebugClient is a minimal in-memory DebugClient used to exercise the
// bridge's request handling without a live target connection.
type fakeDebugClient struct {
	mu       sync.Mutex
	features protocol.FeatureSet
	version  protocol.Version
	cache    *client.Cache

	sent []protocol.Request

	threadsResp     protocol.ThreadsResponse
	stacktraceResps map[uint32]protocol.StacktraceResponse
	variablesResp   protocol.VariablesResponse
}

func newFakeDebugClient(version protocol.Version) *fakeDebugClient {
	return &fakeDebugClient{
		features:        protocol.ComputeFeatureSet(version),
		version:         version,
		cache:           client.NewCache(),
		stacktraceResps: make(map[uint32]protocol.StacktraceResponse),
	}
}

func (f *fakeDebugClient) Connect(ctx context.Context, host string, port int) error { return nil }

func (f *fakeDebugClient) Send(ctx context.Context, req protocol.Request) (protocol.Message, error) {
	f.mu.Lock()
	f.sent = append(f.sent, req)
	f.mu.Unlock()

	switch r := req.(type) {
	case protocol.ThreadsRequest:
		return protocol.Message{RequestID: 1, Response: f.threadsResp}, nil
	case protocol.StacktraceRequest:
		return protocol.Message{RequestID: 1, Response: f.stacktraceResps[r.ThreadIndex]}, nil
	case protocol.VariablesRequest:
		return protocol.Message{RequestID: 1, Response: f.variablesResp}, nil
	case protocol.AddBreakpointsRequest:
		infos := make([]protocol.BreakpointInfo, len(r.Breakpoints))
		for i := range r.Breakpoints {
			infos[i] = protocol.BreakpointInfo{RemoteID: uint32(1000 + i), ErrCode: protocol.ErrOK}
		}
		return protocol.Message{RequestID: 1, Response: protocol.BreakpointsResponse{Breakpoints: infos}}, nil
	default:
		return protocol.Message{RequestID: 1, Response: protocol.EmptyResponse{}}, nil
	}
}

func (f *fakeDebugClient) Shutdown(ctx context.Context) error { return nil }

func (f *fakeDebugClient) HasFeature(feat protocol.Feature) bool { return f.features.Has(feat) }

func (f *fakeDebugClient) ProtocolVersion() protocol.Version { return f.version }

func (f *fakeDebugClient) Cache() *client.Cache { return f.cache }

func (f *fakeDebugClient) IOOutput() <-chan string { return nil }

func (f *fakeDebugClient) sentCommands() []protocol.CommandCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.CommandCode, len(f.sent))
	for i, r := range f.sent {
		out[i] = r.Command()
	}
	return out
}
