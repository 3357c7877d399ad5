package dap

import (
	"context"

	"github.com/bsdebug/client/internal/client"
	"github.com/bsdebug/client/internal/protocol"
)

// DebugClient is the subset of *client.Client the bridge depends on,
// narrowed to an interface so bridge tests can substitute a fake target
// client without a live TCP connection.
type DebugClient interface {
	Connect(ctx context.Context, host string, port int) error
	Send(ctx context.Context, req protocol.Request) (protocol.Message, error)
	Shutdown(ctx context.Context) error
	HasFeature(f protocol.Feature) bool
	ProtocolVersion() protocol.Version
	Cache() *client.Cache
	IOOutput() <-chan string
}

var _ DebugClient = (*client.Client)(nil)
