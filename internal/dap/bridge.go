// Package dap implements the Debug Adapter Protocol bridge: a DAP server
// speaking Content-Length-framed JSON to an editor on one side and the
// Debugger Client on the other, generalized from the teacher's
// internal/core/debugger/dap.go (there, a DAP *client* driving an editor's
// adapter; here, inverted into the adapter itself) and grounded on
// original_source's DebugAdapterProtocol.py handler set.
package dap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	googledap "github.com/google/go-dap"

	"github.com/bsdebug/client/internal/breakpoint"
	"github.com/bsdebug/client/internal/protocol"
	"github.com/bsdebug/client/internal/ratelimit"
	"github.com/bsdebug/client/internal/stackref"
)

// Bridge is one DAP session. It owns the breakpoint and stack-reference
// registries and, once launched, a DebugClient connected to the target.
type Bridge struct {
	logger *slog.Logger
	reader *bufio.Reader
	writer io.Writer
	writeMu sync.Mutex
	seq     int64

	breakpoints *breakpoint.Manager
	stackRefs   *stackref.Manager
	limiter     *ratelimit.Limiter

	mu               sync.Mutex
	debugClient      DebugClient
	connectFunc      func(ctx context.Context, host string, port int, onUpdate func(protocol.Update)) (DebugClient, error)
	configDoneCh     chan struct{}
	initializedSent  bool
	stopOnLaunchWait bool
	suppressNextAttach bool

	done chan struct{}
}

// Options configures a Bridge beyond its required collaborators.
type Options struct {
	Logger  *slog.Logger
	Limiter *ratelimit.Limiter
	// Connect is overridable so tests can substitute a fake DebugClient;
	// production callers leave it nil to get a real client.Client.
	Connect func(ctx context.Context, host string, port int, onUpdate func(protocol.Update)) (DebugClient, error)
}

// NewBridge wires a Bridge to read requests from r and write responses and
// events to w.
func NewBridge(r io.Reader, w io.Writer, opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		logger:       logger,
		reader:       bufio.NewReader(r),
		writer:       w,
		breakpoints:  breakpoint.NewManager(),
		stackRefs:    stackref.NewManager(),
		limiter:      opts.Limiter,
		connectFunc:  opts.Connect,
		configDoneCh: make(chan struct{}),
		done:         make(chan struct{}),
	}
	return b
}

func (b *Bridge) nextSeq() int {
	return int(atomic.AddInt64(&b.seq, 1))
}

// send writes any go-dap protocol message (response or event) to the
// client, serializing writes since events can arrive from the debugger
// update goroutine concurrently with request handling.
func (b *Bridge) send(msg googledap.Message) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return googledap.WriteProtocolMessage(b.writer, msg)
}

func (b *Bridge) sendEvent(event googledap.EventMessage) {
	if err := b.send(event); err != nil {
		b.logger.Error("dap bridge: failed writing event", "err", err)
	}
}

// Run reads requests until EOF or a fatal error, dispatching each to its
// handler and writing back whatever response/events it produces.
func (b *Bridge) Run(ctx context.Context) error {
	defer close(b.done)
	for {
		msg, err := googledap.ReadProtocolMessage(b.reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("dap bridge: reading request: %w", err)
		}

		req, ok := msg.(googledap.RequestMessage)
		if !ok {
			b.logger.Warn("dap bridge: ignoring non-request message", "type", fmt.Sprintf("%T", msg))
			continue
		}

		if b.limiter != nil && !b.limiter.Allow("dap_request") {
			b.writeErrorResponse(req, "rate limit exceeded")
			continue
		}

		b.handleRequest(ctx, req)
	}
}

func (b *Bridge) handleRequest(ctx context.Context, req googledap.RequestMessage) {
	switch r := req.(type) {
	case *googledap.InitializeRequest:
		b.handleInitialize(r)
	case *googledap.LaunchRequest:
		b.handleLaunch(ctx, r)
	case *googledap.ConfigurationDoneRequest:
		b.handleConfigurationDone(ctx, r)
	case *googledap.SetBreakpointsRequest:
		b.handleSetBreakpoints(ctx, r)
	case *googledap.SetExceptionBreakpointsRequest:
		b.handleSetExceptionBreakpoints(r)
	case *googledap.ThreadsRequest:
		b.handleThreads(ctx, r)
	case *googledap.StackTraceRequest:
		b.handleStackTrace(ctx, r)
	case *googledap.ScopesRequest:
		b.handleScopes(ctx, r)
	case *googledap.VariablesRequest:
		b.handleVariables(ctx, r)
	case *googledap.EvaluateRequest:
		b.handleEvaluate(ctx, r)
	case *googledap.ContinueRequest:
		b.handleContinue(ctx, r)
	case *googledap.NextRequest:
		b.handleStep(ctx, r, &r.Request, protocol.StepOver)
	case *googledap.StepInRequest:
		b.handleStep(ctx, r, &r.Request, protocol.StepLine)
	case *googledap.StepOutRequest:
		b.handleStep(ctx, r, &r.Request, protocol.StepOut)
	case *googledap.PauseRequest:
		b.handlePause(ctx, r)
	case *googledap.TerminateRequest:
		b.handleTerminate(ctx, r)
	case *googledap.DisconnectRequest:
		b.handleDisconnect(ctx, r)
	default:
		b.writeErrorResponse(req, fmt.Sprintf("unsupported request %T", req))
	}
}

func (b *Bridge) writeErrorResponse(req googledap.RequestMessage, message string) {
	base := req.GetRequest()
	resp := &googledap.ErrorResponse{
		Response: googledap.Response{
			ProtocolMessage: googledap.ProtocolMessage{Seq: b.nextSeq(), Type: "response"},
			RequestSeq:      base.Seq,
			Success:         false,
			Command:         base.Command,
			Message:         message,
		},
	}
	resp.Body.Error = &googledap.ErrorMessage{Format: message}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing error response", "err", err)
	}
}

func (b *Bridge) client() DebugClient {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.debugClient
}
