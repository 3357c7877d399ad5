package client

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bsdebug/client/internal/client/clienttest"
	"github.com/bsdebug/client/internal/protocol"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVersion() protocol.Version {
	return protocol.Version{Major: 3, Minor: 2, Patch: 0, Revision: 1660300000000}
}

func connectedPair(t *testing.T) (*Client, *clienttest.FakeTarget) {
	t.Helper()
	target, err := clienttest.NewFakeTarget(testVersion())
	require.NoError(t, err)
	t.Cleanup(func() { target.Close() })

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- target.Accept() }()

	c := New(quietLogger(), nil)
	host, port := target.Addr()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx, host, port))
	require.NoError(t, <-acceptErr)

	return c, target
}

func TestConnectNegotiatesVersionAndFeatures(t *testing.T) {
	c, _ := connectedPair(t)
	require.Equal(t, StateConnected, c.State())
	require.Equal(t, testVersion(), c.ProtocolVersion())
	require.True(t, c.HasFeature(protocol.FeatureUpdatesHavePacketLength))
}

func TestSendThreadsRequestRoundTrips(t *testing.T) {
	c, target := connectedPair(t)

	go func() {
		req := <-target.Requests
		require.Equal(t, protocol.CmdThreads, req.Command)
		require.NoError(t, target.SendThreadsResponse(req.RequestID, []protocol.ThreadInfo{
			{IsPrimary: true, StopReason: protocol.StopReasonBreak, Line: 10, Func: "main", File: "pkg:/source/main.brs"},
		}))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := c.Send(ctx, protocol.ThreadsRequest{})
	require.NoError(t, err)
	require.False(t, msg.IsError)

	resp, ok := msg.Response.(protocol.ThreadsResponse)
	require.True(t, ok)
	require.Len(t, resp.Threads, 1)
	require.Equal(t, uint32(10), resp.Threads[0].Line)
}

func TestStepResolvesViaAsyncStoppedUpdate(t *testing.T) {
	c, target := connectedPair(t)

	go func() {
		req := <-target.Requests
		require.Equal(t, protocol.CmdStep, req.Command)
		require.NoError(t, target.SendAllThreadsStoppedUpdate(0, protocol.StopReasonStopStatement, ""))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := c.Send(ctx, protocol.StepRequest{ThreadIndex: 0, StepType: protocol.StepLine})
	require.NoError(t, err)
	require.NotNil(t, msg.Update)
	require.Equal(t, protocol.UpdateAllThreadsStopped, msg.Update.Type())
}

func TestContinueInvalidatesCacheOnSend(t *testing.T) {
	c, target := connectedPair(t)
	c.Cache().SetThreads(protocol.ThreadsResponse{Threads: []protocol.ThreadInfo{{IsPrimary: true}}})

	go func() {
		req := <-target.Requests
		require.NoError(t, target.SendEmptyResponse(req.RequestID))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Send(ctx, protocol.ContinueRequest{})
	require.NoError(t, err)

	_, ok := c.Cache().GetThreads()
	require.False(t, ok)
}

func TestErrorResponseIsDelivered(t *testing.T) {
	c, target := connectedPair(t)

	go func() {
		req := <-target.Requests
		require.NoError(t, target.SendError(req.RequestID, protocol.ErrInvalidArgs))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg, err := c.Send(ctx, protocol.ThreadsRequest{})
	require.NoError(t, err)
	require.True(t, msg.IsError)
	require.Equal(t, protocol.ErrInvalidArgs, msg.Error.Code)
}

func TestConnectIoPortUpdateReachesHandler(t *testing.T) {
	var gotUpdate protocol.Update
	done := make(chan struct{})

	target, err := clienttest.NewFakeTarget(testVersion())
	require.NoError(t, err)
	t.Cleanup(func() { target.Close() })

	acceptErr := make(chan error, 1)
	go func() { acceptErr <- target.Accept() }()

	c := New(quietLogger(), func(u protocol.Update) {
		gotUpdate = u
		close(done)
	})
	host, port := target.Addr()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx, host, port))
	require.NoError(t, <-acceptErr)

	require.NoError(t, target.SendConnectIoPortUpdate(9000))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for CONNECT_IO_PORT update")
	}
	require.Equal(t, protocol.UpdateConnectIoPort, gotUpdate.Type())
}
