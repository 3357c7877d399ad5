// Package client implements the debugger's Control/IO Listener loops and
// the request/response front-end, generalized from the teacher's
// internal/core/debugger/dap.go Client (sendRequest + seq-keyed channel
// map) and its internal/core/ssh/session.go Connect backoff idiom.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bsdebug/client/internal/protocol"
	"github.com/bsdebug/client/internal/wire"
)

// State is the connection lifecycle state machine of spec §4.6.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateConnected
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Backoff constants for Connect's retry loop (spec §4.6).
const (
	backoffStart    = 100 * time.Millisecond
	backoffFactor   = 1.1
	backoffCeiling  = 1 * time.Second
	connectDeadline = 60 * time.Second
)

// UpdateHandler is invoked by the Control Listener for every asynchronous
// update, after caches have been refreshed.
type UpdateHandler func(protocol.Update)

// Client is a connection to one debug target's control port. It owns the
// Control Listener goroutine and lazily starts an I/O Listener once the
// target reports its I/O port.
type Client struct {
	logger *slog.Logger

	mu    sync.Mutex
	state State
	conn  net.Conn
	in    *wire.Reader
	out   *wire.Writer

	writeMu sync.Mutex

	version  protocol.Version
	features protocol.FeatureSet

	sessionID string

	nextRequestID uint32
	idMu          sync.Mutex

	pending *Registry
	cache   *Cache

	onUpdate UpdateHandler

	ioListener *ioListener

	doneCh chan struct{}
}

// New creates a Client in the disconnected state.
func New(logger *slog.Logger, onUpdate UpdateHandler) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:    logger,
		state:     StateDisconnected,
		sessionID: uuid.New().String(),
		pending:   NewRegistry(),
		cache:     NewCache(),
		onUpdate:  onUpdate,
		// nextRequestID starts at 1: 0 is reserved for unsolicited updates.
		nextRequestID: 1,
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current connection lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ProtocolVersion returns the negotiated version. Only meaningful once
// State is at least StateConnected.
func (c *Client) ProtocolVersion() protocol.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// HasFeature reports whether the negotiated feature set includes f.
func (c *Client) HasFeature(f protocol.Feature) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.features.Has(f)
}

// Cache exposes the threads/stacktrace/variables cache to front-ends.
func (c *Client) Cache() *Cache { return c.cache }

// HasPendingRequest reports whether any request is outstanding.
func (c *Client) HasPendingRequest() bool { return c.pending.HasPending() }

// PendingRequestCount returns the number of outstanding requests.
func (c *Client) PendingRequestCount() int { return c.pending.Count() }

// Connect dials host:port with exponential backoff (start 100ms, factor
// 1.1, capped at 1s between attempts, giving up after 60s total) and
// performs the version handshake.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	c.setState(StateConnecting)
	addr := fmt.Sprintf("%s:%d", host, port)

	deadline := time.Now().Add(connectDeadline)
	delay := backoffStart
	var lastErr error

	for attempt := 1; ; attempt++ {
		if time.Now().After(deadline) {
			c.setState(StateDisconnected)
			return fmt.Errorf("connecting to %s: timed out after %s: %w", addr, connectDeadline, lastErr)
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			c.logger.Info("connected to target", "addr", addr, "attempt", attempt, "session_id", c.sessionID)
			return c.onConnected(conn)
		}

		lastErr = err
		c.logger.Debug("connect attempt failed, retrying", "addr", addr, "attempt", attempt, "delay", delay, "err", err)

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * backoffFactor)
		if delay > backoffCeiling {
			delay = backoffCeiling
		}
	}
}

func (c *Client) onConnected(conn net.Conn) error {
	c.setState(StateHandshaking)

	in := wire.NewReader(conn)
	out := wire.NewWriter(conn)

	version, features, err := protocol.Handshake(in, out)
	if err != nil {
		conn.Close()
		c.setState(StateDisconnected)
		return fmt.Errorf("handshake: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.in = in
	c.out = out
	c.version = version
	c.features = features
	c.mu.Unlock()

	c.doneCh = make(chan struct{})
	c.setState(StateConnected)
	c.logger.Info("handshake complete", "version", version.String(), "session_id", c.sessionID)

	go c.controlListenerLoop()
	return nil
}

// allocRequestID returns the next request id, skipping 0.
func (c *Client) allocRequestID() uint32 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	id := c.nextRequestID
	c.nextRequestID++
	if c.nextRequestID == 0 {
		c.nextRequestID = 1
	}
	return id
}

// invalidatesOnSend reports whether sending this command should eagerly
// invalidate caches, per spec: continue/step/exitChannel invalidate on
// send, not on response, since the target may resume before it responds.
func invalidatesOnSend(cmd protocol.CommandCode) bool {
	switch cmd {
	case protocol.CmdContinue, protocol.CmdStep, protocol.CmdExitChannel:
		return true
	default:
		return false
	}
}

// Send writes req to the control port and blocks until its response (or,
// for step, the async update that resolves it) arrives, or ctx is done.
func (c *Client) Send(ctx context.Context, req protocol.Request) (protocol.Message, error) {
	id := c.allocRequestID()
	ch := c.pending.Add(id, req.Command(), nil)

	if invalidatesOnSend(req.Command()) {
		c.cache.InvalidateAll()
	}

	c.mu.Lock()
	out := c.out
	features := c.features
	c.mu.Unlock()
	if out == nil {
		c.pending.ResolveByID(id, Result{})
		return protocol.Message{}, fmt.Errorf("client: not connected")
	}

	c.writeMu.Lock()
	err := protocol.EncodeRequest(out, id, req, features)
	c.writeMu.Unlock()
	if err != nil {
		c.pending.ResolveByID(id, Result{})
		return protocol.Message{}, fmt.Errorf("sending %s: %w", req.Command(), err)
	}

	select {
	case result := <-ch:
		return result.Msg, result.Err
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	case <-c.doneCh:
		return protocol.Message{}, fmt.Errorf("client: connection closed while waiting for %s response", req.Command())
	}
}

// Shutdown sends exitChannel (best-effort) and tears down both listener
// loops.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	conn := c.conn
	c.mu.Unlock()

	if state != StateConnected {
		return nil
	}

	_, _ = c.Send(ctx, protocol.ExitChannelRequest{})

	c.setState(StateShutdown)
	if c.doneCh != nil {
		select {
		case <-c.doneCh:
		default:
			close(c.doneCh)
		}
	}
	c.pending.FailAll(fmt.Errorf("client: shut down"))

	if c.ioListener != nil {
		c.ioListener.stop()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) controlListenerLoop() {
	for {
		msg, err := protocol.DecodeMessage(c.in, c.features, c.pending)
		if err != nil {
			c.logger.Error("control listener: fatal decode error", "err", err, "session_id", c.sessionID)
			c.handleFatal(err)
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) handleFatal(err error) {
	c.setState(StateDisconnected)
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	if c.doneCh != nil {
		select {
		case <-c.doneCh:
		default:
			close(c.doneCh)
		}
	}
	c.pending.FailAll(err)
}

func (c *Client) dispatch(msg protocol.Message) {
	c.applyCacheUpdates(msg)

	if msg.RequestID != 0 {
		if c.pending.ResolveByID(msg.RequestID, Result{Msg: msg}) {
			return
		}
		c.logger.Warn("control listener: response for unknown request id", "request_id", msg.RequestID, "session_id", c.sessionID)
		return
	}

	// Unsolicited: either an update, or (rare) an error with request_id 0.
	if msg.Update != nil {
		c.pending.ResolveByUpdateType(msg.Update.Type(), Result{Msg: msg})
		if msg.Update.Type() == protocol.UpdateConnectIoPort {
			c.handleConnectIoPort(msg.Update.(protocol.ConnectIoPortUpdate))
		}
		if c.onUpdate != nil {
			c.onUpdate(msg.Update)
		}
		return
	}

	c.logger.Warn("control listener: unsolicited error payload", "session_id", c.sessionID)
}

// applyCacheUpdates refreshes caches before the front-end callback fires,
// per spec: stop/attach updates invalidate all state.
func (c *Client) applyCacheUpdates(msg protocol.Message) {
	if msg.Update == nil {
		return
	}
	switch msg.Update.Type() {
	case protocol.UpdateAllThreadsStopped, protocol.UpdateThreadAttached:
		c.cache.InvalidateAll()
	}
}

func (c *Client) handleConnectIoPort(update protocol.ConnectIoPortUpdate) {
	c.mu.Lock()
	host := ""
	if tcpAddr, ok := c.conn.RemoteAddr().(*net.TCPAddr); ok {
		host = tcpAddr.IP.String()
	}
	c.mu.Unlock()
	if host == "" {
		c.logger.Error("cannot determine target host for io port", "session_id", c.sessionID)
		return
	}

	l := newIOListener(c.logger, c.sessionID)
	c.mu.Lock()
	c.ioListener = l
	c.mu.Unlock()

	if err := l.connect(host, int(update.IoPort)); err != nil {
		c.logger.Error("io listener connect failed", "err", err, "session_id", c.sessionID)
	}
}

// IOOutput returns the channel the I/O Listener publishes the target's
// output on, one single-byte string per byte received. Returns nil if the
// I/O port hasn't connected yet.
func (c *Client) IOOutput() <-chan string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ioListener == nil {
		return nil
	}
	return c.ioListener.output
}
