package protocol

import (
	"bytes"
	"testing"

	"github.com/bsdebug/client/internal/wire"
	"github.com/stretchr/testify/require"
)

type fakePending struct {
	byID map[uint32]CommandCode
}

func (f fakePending) CommandForRequestID(id uint32) (CommandCode, bool) {
	c, ok := f.byID[id]
	return c, ok
}

func featureSetForTest(major int32) FeatureSet {
	return ComputeFeatureSet(Version{Major: major, Minor: 0, Patch: 0})
}

// TestEncodeRequestPacketSize checks that EncodeRequest's declared
// packet_size matches the bytes actually written (spec §8 invariant).
func TestEncodeRequestPacketSize(t *testing.T) {
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	fs := featureSetForTest(3)

	req := AddBreakpointsRequest{Breakpoints: []AddBreakpointEntry{
		{Path: "pkg:/source/main.brs", Line: 10, IgnoreCount: 0},
		{Path: "pkg:/source/main.brs", Line: 20, IgnoreCount: 5},
	}}
	require.NoError(t, EncodeRequest(w, 7, req, fs))

	r := wire.NewReader(&buf)
	packetSize, err := r.ReadUint32()
	require.NoError(t, err)
	requestID, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(7), requestID)
	cmd, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(CmdAddBreakpoints), cmd)

	require.Equal(t, int(packetSize), buf.Len()+12) // already consumed 12 header bytes
}

// TestAddBreakpointsScenario3 mirrors spec §8 scenario 3.
func TestAddBreakpointsScenario3(t *testing.T) {
	fs := featureSetForTest(3)
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)

	// Synthesize the target's response bytes directly, without a
	// packet_length prefix; updates_have_packet_length is switched off in
	// the feature set below so the decoder does not expect one.
	require.NoError(t, w.WriteUint32(7)) // request_id
	require.NoError(t, w.WriteUint32(uint32(ErrOK)))
	require.NoError(t, w.WriteUint32(2)) // n entries
	require.NoError(t, w.WriteUint32(1001))
	require.NoError(t, w.WriteUint32(uint32(ErrOK)))
	require.NoError(t, w.WriteUint32(0))
	require.NoError(t, w.WriteUint32(1002))
	require.NoError(t, w.WriteUint32(uint32(ErrOK)))
	require.NoError(t, w.WriteUint32(5))

	fsNoLen := FeatureSet{}
	for k, v := range fs {
		fsNoLen[k] = v
	}
	fsNoLen[FeatureUpdatesHavePacketLength] = false

	r := wire.NewReader(&buf)
	pending := fakePending{byID: map[uint32]CommandCode{7: CmdAddBreakpoints}}
	msg, err := DecodeMessage(r, fsNoLen, pending)
	require.NoError(t, err)
	require.False(t, msg.IsError)

	resp, ok := msg.Response.(BreakpointsResponse)
	require.True(t, ok)
	require.Len(t, resp.Breakpoints, 2)
	require.Equal(t, uint32(1001), resp.Breakpoints[0].RemoteID)
	require.Equal(t, uint32(0), resp.Breakpoints[0].IgnoreCount)
	require.Equal(t, uint32(1002), resp.Breakpoints[1].RemoteID)
	require.Equal(t, uint32(5), resp.Breakpoints[1].IgnoreCount)
}

// TestStepResolvesViaAsyncStop mirrors spec §8 scenario 2: a step request's
// direct response carries no payload, and the actual resolution comes from
// a subsequent ALL_THREADS_STOPPED update.
func TestStepResolvesViaAsyncStop(t *testing.T) {
	fs := FeatureSet{}
	for k, v := range featureSetForTest(3) {
		fs[k] = v
	}
	fs[FeatureUpdatesHavePacketLength] = false
	pending := fakePending{byID: map[uint32]CommandCode{3: CmdStep}}

	var respBuf bytes.Buffer
	rw := wire.NewWriter(&respBuf)
	require.NoError(t, rw.WriteUint32(3))
	require.NoError(t, rw.WriteUint32(uint32(ErrOK)))
	respMsg, err := DecodeMessage(wire.NewReader(&respBuf), fs, pending)
	require.NoError(t, err)
	require.IsType(t, EmptyResponse{}, respMsg.Response)

	var updBuf bytes.Buffer
	uw := wire.NewWriter(&updBuf)
	require.NoError(t, uw.WriteUint32(0)) // request_id == 0: async
	require.NoError(t, uw.WriteUint32(uint32(ErrOK)))
	require.NoError(t, uw.WriteUint32(uint32(UpdateAllThreadsStopped)))
	require.NoError(t, uw.WriteInt32(0))
	require.NoError(t, uw.WriteUint8(uint8(StopReasonBreak)))
	require.NoError(t, uw.WriteUTF8Z(""))

	updMsg, err := DecodeMessage(wire.NewReader(&updBuf), fs, pending)
	require.NoError(t, err)
	stopUpd, ok := updMsg.Update.(AllThreadsStoppedUpdate)
	require.True(t, ok)
	require.Equal(t, int32(0), stopUpd.PrimaryThreadIndex)
	require.True(t, ResolvesPendingByUpdateType(CmdStep, updMsg.Update.Type()))
}

// TestVariableNotFoundScenario4 mirrors spec §8 scenario 4.
func TestVariableNotFoundScenario4(t *testing.T) {
	fs := FeatureSet{}
	for k, v := range featureSetForTest(3) {
		fs[k] = v
	}
	fs[FeatureUpdatesHavePacketLength] = false
	fs[FeatureErrorFlags] = true

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteUint32(9))
	require.NoError(t, w.WriteUint32(uint32(ErrInvalidArgs)))
	require.NoError(t, w.WriteUint32(uint32(ErrFlagMissingKeyInPath)))
	require.NoError(t, w.WriteInt32(1))

	pending := fakePending{byID: map[uint32]CommandCode{9: CmdVariables}}
	msg, err := DecodeMessage(wire.NewReader(&buf), fs, pending)
	require.NoError(t, err)
	require.True(t, msg.IsError)
	require.Equal(t, ErrInvalidArgs, msg.Error.Code)
	require.True(t, msg.Error.HasMissingKeyPath)
	require.Equal(t, int32(1), msg.Error.MissingKeyPathIdx)
	require.False(t, msg.Error.HasInvalidValuePath)
}

func TestStacktraceResponseReordersFrames(t *testing.T) {
	fs := FeatureSet{}
	for k, v := range featureSetForTest(1) {
		fs[k] = v
	}
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteUint32(4))
	require.NoError(t, w.WriteUint32(uint32(ErrOK)))
	require.NoError(t, w.WriteUint32(2))
	require.NoError(t, w.WriteUint32(99)) // innermost, read first on wire
	require.NoError(t, w.WriteUTF8Z("Inner"))
	require.NoError(t, w.WriteUTF8Z("pkg:/source/main.brs"))
	require.NoError(t, w.WriteUint32(5)) // oldest, read second on wire
	require.NoError(t, w.WriteUTF8Z("Main"))
	require.NoError(t, w.WriteUTF8Z("pkg:/source/main.brs"))

	pending := fakePending{byID: map[uint32]CommandCode{4: CmdStacktrace}}
	msg, err := DecodeMessage(wire.NewReader(&buf), fs, pending)
	require.NoError(t, err)
	resp := msg.Response.(StacktraceResponse)
	require.Equal(t, "Main", resp.Frames[0].Func)
	require.Equal(t, "Inner", resp.Frames[1].Func)
}

func TestUnknownRequestIDIsLogicError(t *testing.T) {
	fs := FeatureSet{}
	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	require.NoError(t, w.WriteUint32(123))
	require.NoError(t, w.WriteUint32(uint32(ErrOK)))
	pending := fakePending{byID: map[uint32]CommandCode{}}
	_, err := DecodeMessage(wire.NewReader(&buf), fs, pending)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindLogic, perr.Kind)
}
