package obslog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingHandlerRetainsLastN(t *testing.T) {
	h := NewRingHandler(2)
	logger := slog.New(h)

	logger.Info("first")
	logger.Info("second")
	logger.Info("third")

	all := h.All()
	require.Len(t, all, 2)
	require.Equal(t, "second", all[0].Message)
	require.Equal(t, "third", all[1].Message)
}

func TestRingHandlerCapturesAttrs(t *testing.T) {
	h := NewRingHandler(10)
	logger := slog.New(h).With("session_id", "abc")
	logger.Info("connected", "host", "10.0.0.5")

	all := h.All()
	require.Len(t, all, 1)
	require.Equal(t, "abc", all[0].Attrs["session_id"])
	require.Equal(t, "10.0.0.5", all[0].Attrs["host"])
}

func TestRingHandlerEnabled(t *testing.T) {
	h := NewRingHandler(1)
	require.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}
