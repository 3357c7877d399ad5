package protocol

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bsdebug/client/internal/wire"
)

// baseHeaderSize is the fixed 12-byte request header: packet_size,
// request_id, command_code, each a uint32.
const baseHeaderSize = 12

// Request is implemented by every request payload: a command code plus an
// encoder for the bytes after the base header. Requests carry no
// caller-attached data, and a decoded Message carries none back; callers
// correlate a response only through the value Send returns for it.
type Request interface {
	Command() CommandCode
	encodePayload(w *wire.Writer, fs FeatureSet) error
}

// EncodeRequest serializes req with the given request id, computing and
// verifying packet_size as it goes (spec §4.4).
func EncodeRequest(out *wire.Writer, requestID uint32, req Request, fs FeatureSet) error {
	var payloadBuf bytes.Buffer
	pw := wire.NewWriter(&payloadBuf)
	if err := req.encodePayload(pw, fs); err != nil {
		return wrapErr(KindLogic, err, "encoding %s payload", req.Command())
	}

	packetSize := uint32(baseHeaderSize) + uint32(payloadBuf.Len())

	before := out.Count()
	if err := out.WriteUint32(packetSize); err != nil {
		return wrapErr(KindTransport, err, "writing packet_size")
	}
	if err := out.WriteUint32(requestID); err != nil {
		return wrapErr(KindTransport, err, "writing request_id")
	}
	if err := out.WriteUint32(uint32(req.Command())); err != nil {
		return wrapErr(KindTransport, err, "writing command_code")
	}
	if err := out.WriteBytes(payloadBuf.Bytes()); err != nil {
		return wrapErr(KindTransport, err, "writing payload")
	}

	written := out.Count() - before
	if uint32(written) != packetSize {
		return newErr(KindLogic, "packet_size mismatch: declared %d, wrote %d", packetSize, written)
	}
	return nil
}

// --- no-payload requests ---

type StopRequest struct{}

func (StopRequest) Command() CommandCode { return CmdStop }
func (StopRequest) encodePayload(*wire.Writer, FeatureSet) error { return nil }

type ContinueRequest struct{}

func (ContinueRequest) Command() CommandCode { return CmdContinue }
func (ContinueRequest) encodePayload(*wire.Writer, FeatureSet) error { return nil }

type ThreadsRequest struct{}

func (ThreadsRequest) Command() CommandCode { return CmdThreads }
func (ThreadsRequest) encodePayload(*wire.Writer, FeatureSet) error { return nil }

type ListBreakpointsRequest struct{}

func (ListBreakpointsRequest) Command() CommandCode { return CmdListBreakpoints }
func (ListBreakpointsRequest) encodePayload(*wire.Writer, FeatureSet) error { return nil }

type ExitChannelRequest struct{}

func (ExitChannelRequest) Command() CommandCode { return CmdExitChannel }
func (ExitChannelRequest) encodePayload(*wire.Writer, FeatureSet) error { return nil }

// --- stacktrace ---

type StacktraceRequest struct {
	ThreadIndex uint32
}

func (StacktraceRequest) Command() CommandCode { return CmdStacktrace }
func (r StacktraceRequest) encodePayload(w *wire.Writer, _ FeatureSet) error {
	return w.WriteUint32(r.ThreadIndex)
}

// --- step ---

type StepRequest struct {
	ThreadIndex uint32
	StepType    StepType
}

func (StepRequest) Command() CommandCode { return CmdStep }
func (r StepRequest) encodePayload(w *wire.Writer, _ FeatureSet) error {
	if err := w.WriteUint32(r.ThreadIndex); err != nil {
		return err
	}
	return w.WriteUint8(uint8(r.StepType))
}

// --- variables ---

type VariablesRequest struct {
	ThreadIndex  uint32
	FrameIndex   uint32
	Path         []PathEntry
	GetChildKeys bool
}

func (VariablesRequest) Command() CommandCode { return CmdVariables }

func (r VariablesRequest) encodePayload(w *wire.Writer, fs FeatureSet) error {
	caseOptionsSupported := fs.Has(FeatureCaseSensitivityOptions)
	anyForceInsensitive := false
	for _, p := range r.Path {
		if p.ForceInsensitive {
			anyForceInsensitive = true
		}
	}

	var flags variablesRequestFlag
	if r.GetChildKeys {
		flags |= varReqFlagGetChildKeys
	}
	useCaseOptions := caseOptionsSupported && anyForceInsensitive
	if useCaseOptions {
		flags |= varReqFlagCaseSensitivityOption
	}

	if err := w.WriteUint8(uint8(flags)); err != nil {
		return err
	}
	if err := w.WriteUint32(r.ThreadIndex); err != nil {
		return err
	}
	if err := w.WriteUint32(r.FrameIndex); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(r.Path))); err != nil {
		return err
	}
	for _, p := range r.Path {
		name := p.Name
		if p.ForceInsensitive && !caseOptionsSupported {
			name = strings.ToLower(name)
		}
		if err := w.WriteUTF8Z(name); err != nil {
			return err
		}
	}
	if useCaseOptions {
		for _, p := range r.Path {
			v := uint8(0)
			if p.ForceInsensitive {
				v = 1
			}
			if err := w.WriteUint8(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- add_breakpoints ---

type AddBreakpointEntry struct {
	Path        string
	Line        uint32
	IgnoreCount uint32
}

type AddBreakpointsRequest struct {
	Breakpoints []AddBreakpointEntry
}

func (AddBreakpointsRequest) Command() CommandCode { return CmdAddBreakpoints }

func (r AddBreakpointsRequest) encodePayload(w *wire.Writer, fs FeatureSet) error {
	if err := w.WriteUint32(uint32(len(r.Breakpoints))); err != nil {
		return err
	}
	uriSupport := fs.Has(FeatureBreakpointURIs)
	for _, bp := range r.Breakpoints {
		path := bp.Path
		if !uriSupport {
			path = stripBreakpointURI(path)
		}
		if err := w.WriteUTF8Z(path); err != nil {
			return err
		}
		if err := w.WriteUint32(bp.Line); err != nil {
			return err
		}
		if err := w.WriteUint32(bp.IgnoreCount); err != nil {
			return err
		}
	}
	return nil
}

// stripBreakpointURI removes a pkg:/ or lib:/<name>/ scheme for targets
// that don't understand breakpoint URIs (spec §4.4).
func stripBreakpointURI(uri string) string {
	if strings.HasPrefix(uri, "pkg:/") {
		return strings.TrimPrefix(uri, "pkg:/")
	}
	if strings.HasPrefix(uri, "lib:/") {
		rest := strings.TrimPrefix(uri, "lib:/")
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return rest[idx+1:]
		}
		return rest
	}
	return uri
}

// --- add_conditional_breakpoints ---

type AddConditionalBreakpointEntry struct {
	URI         string
	Line        uint32
	IgnoreCount uint32
	CondExpr    string
}

type AddConditionalBreakpointsRequest struct {
	Breakpoints []AddConditionalBreakpointEntry
}

func (AddConditionalBreakpointsRequest) Command() CommandCode {
	return CmdAddConditionalBreakpoints
}

func (r AddConditionalBreakpointsRequest) encodePayload(w *wire.Writer, fs FeatureSet) error {
	if !fs.Has(FeatureConditionalBreakpoints) {
		return fmt.Errorf("target does not support conditional breakpoints")
	}
	if err := w.WriteUint32(0); err != nil { // flags, reserved
		return err
	}
	if err := w.WriteUint32(uint32(len(r.Breakpoints))); err != nil {
		return err
	}
	for _, bp := range r.Breakpoints {
		// URIs always transmitted as URIs, unlike add_breakpoints.
		if err := w.WriteUTF8Z(bp.URI); err != nil {
			return err
		}
		if err := w.WriteUint32(bp.Line); err != nil {
			return err
		}
		if err := w.WriteUint32(bp.IgnoreCount); err != nil {
			return err
		}
		if err := w.WriteUTF8Z(bp.CondExpr); err != nil {
			return err
		}
	}
	return nil
}

// --- remove_breakpoints ---

type RemoveBreakpointsRequest struct {
	RemoteIDs []uint32
}

func (RemoveBreakpointsRequest) Command() CommandCode { return CmdRemoveBreakpoints }

func (r RemoveBreakpointsRequest) encodePayload(w *wire.Writer, _ FeatureSet) error {
	if err := w.WriteUint32(uint32(len(r.RemoteIDs))); err != nil {
		return err
	}
	for _, id := range r.RemoteIDs {
		if err := w.WriteUint32(id); err != nil {
			return err
		}
	}
	return nil
}

// --- execute ---

type ExecuteRequest struct {
	ThreadIndex uint32
	FrameIndex  uint32
	SourceCode  string
}

func (ExecuteRequest) Command() CommandCode { return CmdExecute }

func (r ExecuteRequest) encodePayload(w *wire.Writer, fs FeatureSet) error {
	if !fs.Has(FeatureExecuteCommand) {
		return fmt.Errorf("target does not support execute")
	}
	if err := w.WriteUint32(r.ThreadIndex); err != nil {
		return err
	}
	if err := w.WriteUint32(r.FrameIndex); err != nil {
		return err
	}
	return w.WriteUTF8Z(r.SourceCode)
}
