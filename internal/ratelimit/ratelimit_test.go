package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowRespectsBurst(t *testing.T) {
	l := New(map[string]Limits{
		"dap_request": {RequestsPerSecond: 1, Burst: 2},
	})

	require.True(t, l.Allow("dap_request"))
	require.True(t, l.Allow("dap_request"))
	require.False(t, l.Allow("dap_request"))
}

func TestUnknownOperationIsUnrestricted(t *testing.T) {
	l := New(map[string]Limits{})
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("anything"))
	}
}
