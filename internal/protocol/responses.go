package protocol

import (
	"fmt"

	"github.com/bsdebug/client/internal/wire"
)

// Response is the decoded payload of a solicited response, tagged by the
// CommandCode of the request that triggered it.
type Response interface {
	isResponse()
}

// ErrorResponse is returned whenever the target's err_code != OK (spec §4.5).
// It can arrive in place of any response, so the demultiplexer always
// checks for it first.
type ErrorResponse struct {
	Code                 ErrCode
	Flags                ErrFlag
	HasFlags             bool
	InvalidValuePathIdx  int32
	HasInvalidValuePath  bool
	MissingKeyPathIdx    int32
	HasMissingKeyPath    bool
}

func (ErrorResponse) isResponse() {}

type ThreadsResponse struct {
	Threads []ThreadInfo
}

func (ThreadsResponse) isResponse() {}

type StacktraceResponse struct {
	Frames []StackFrame
}

func (StacktraceResponse) isResponse() {}

type VariablesResponse struct {
	Variables []Variable
}

func (VariablesResponse) isResponse() {}

type BreakpointsResponse struct {
	Breakpoints []BreakpointInfo
}

func (BreakpointsResponse) isResponse() {}

type ExecuteResponse struct {
	HasStructuredErrors bool
	RunSuccess          bool
	RunStopCode         uint8
	CompileErrors       []string
	RuntimeErrors       []string
	OtherErrors         []string
}

func (ExecuteResponse) isResponse() {}

// EmptyResponse is returned for commands whose response has no payload:
// stop, continue, step and exit_channel (a step usually resolves via an
// update instead of this).
type EmptyResponse struct{}

func (EmptyResponse) isResponse() {}

// Update is a decoded asynchronous (request_id == 0) message.
type Update interface {
	isUpdate()
	Type() UpdateType
}

type ConnectIoPortUpdate struct {
	IoPort uint32
}

func (ConnectIoPortUpdate) isUpdate()          {}
func (ConnectIoPortUpdate) Type() UpdateType { return UpdateConnectIoPort }

type AllThreadsStoppedUpdate struct {
	PrimaryThreadIndex int32
	StopReason         StopReason
	Detail             string
}

func (AllThreadsStoppedUpdate) isUpdate()          {}
func (AllThreadsStoppedUpdate) Type() UpdateType { return UpdateAllThreadsStopped }

type ThreadAttachedUpdate struct {
	ThreadIndex int32
	StopReason  StopReason
	Detail      string
}

func (ThreadAttachedUpdate) isUpdate()          {}
func (ThreadAttachedUpdate) Type() UpdateType { return UpdateThreadAttached }

type BreakpointErrorUpdate struct {
	Flags         uint32
	BreakpointID  uint32
	CompileErrors []string
	RuntimeErrors []string
	OtherErrors   []string
}

func (BreakpointErrorUpdate) isUpdate()          {}
func (BreakpointErrorUpdate) Type() UpdateType { return UpdateBreakpointError }

type CompileErrorUpdate struct {
	Flags   uint32
	ErrStr  string
	FileURI string
	Line    uint32
	LibName string // empty means "none"
}

func (CompileErrorUpdate) isUpdate()          {}
func (CompileErrorUpdate) Type() UpdateType { return UpdateCompileError }

// readErrorPayload reads the err_flags payload when FeatureErrorFlags is
// enabled. At most one of InvalidValuePathIdx/MissingKeyPathIdx is present.
func readErrorPayload(r *wire.Reader, fs FeatureSet) (ErrorResponse, error) {
	resp := ErrorResponse{}
	if !fs.Has(FeatureErrorFlags) {
		return resp, nil
	}
	flags, err := r.ReadUint32()
	if err != nil {
		return resp, err
	}
	resp.HasFlags = true
	resp.Flags = ErrFlag(flags)
	if resp.Flags&ErrFlagInvalidValueInPath != 0 {
		v, err := r.ReadInt32()
		if err != nil {
			return resp, err
		}
		resp.HasInvalidValuePath = true
		resp.InvalidValuePathIdx = v
	}
	if resp.Flags&ErrFlagMissingKeyInPath != 0 {
		v, err := r.ReadInt32()
		if err != nil {
			return resp, err
		}
		resp.HasMissingKeyPath = true
		resp.MissingKeyPathIdx = v
	}
	return resp, nil
}

func readThreadsResponse(r *wire.Reader) (ThreadsResponse, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return ThreadsResponse{}, err
	}
	threads := make([]ThreadInfo, 0, n)
	primaryCount := 0
	for i := uint32(0); i < n; i++ {
		flagsByte, err := r.ReadUint8()
		if err != nil {
			return ThreadsResponse{}, err
		}
		stopReason, err := r.ReadUint32()
		if err != nil {
			return ThreadsResponse{}, err
		}
		detail, err := r.ReadUTF8Z()
		if err != nil {
			return ThreadsResponse{}, err
		}
		line, err := r.ReadUint32()
		if err != nil {
			return ThreadsResponse{}, err
		}
		fn, err := r.ReadUTF8Z()
		if err != nil {
			return ThreadsResponse{}, err
		}
		file, err := r.ReadUTF8Z()
		if err != nil {
			return ThreadsResponse{}, err
		}
		snippet, err := r.ReadUTF8Z()
		if err != nil {
			return ThreadsResponse{}, err
		}
		ti := ThreadInfo{
			IsPrimary:  threadFlag(flagsByte)&threadFlagIsPrimary != 0,
			IsDetached: threadFlag(flagsByte)&threadFlagIsDetached != 0,
			StopReason: StopReason(stopReason),
			Detail:     detail,
			Line:       line,
			Func:       fn,
			File:       file,
			Snippet:    snippet,
		}
		if ti.IsPrimary {
			primaryCount++
		}
		threads = append(threads, ti)
	}
	if primaryCount != 1 {
		return ThreadsResponse{}, fmt.Errorf("threads response: expected exactly 1 primary thread, got %d", primaryCount)
	}
	return ThreadsResponse{Threads: threads}, nil
}

func readStacktraceResponse(r *wire.Reader) (StacktraceResponse, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return StacktraceResponse{}, err
	}
	frames := make([]StackFrame, n)
	for i := uint32(0); i < n; i++ {
		line, err := r.ReadUint32()
		if err != nil {
			return StacktraceResponse{}, err
		}
		fn, err := r.ReadUTF8Z()
		if err != nil {
			return StacktraceResponse{}, err
		}
		file, err := r.ReadUTF8Z()
		if err != nil {
			return StacktraceResponse{}, err
		}
		frames[i] = StackFrame{Line: line, Func: fn, File: file}
	}
	// reverse so index 0 is the oldest frame and n-1 is innermost/current.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return StacktraceResponse{Frames: frames}, nil
}

func readVariablesResponse(r *wire.Reader) (VariablesResponse, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return VariablesResponse{}, err
	}
	vars := make([]Variable, n)
	for i := uint32(0); i < n; i++ {
		v, err := readVariable(r)
		if err != nil {
			return VariablesResponse{}, err
		}
		vars[i] = v
	}
	return VariablesResponse{Variables: vars}, nil
}

// containerTypes carry no inline value. Object, Interface and
// SubtypedObject may also set the container flag but still carry a value.
var containerTypes = map[VariableType]bool{
	VarAA:    true,
	VarArray: true,
	VarList:  true,
}

func readVariable(r *wire.Reader) (Variable, error) {
	flagsByte, err := r.ReadUint8()
	if err != nil {
		return Variable{}, err
	}
	typeByte, err := r.ReadUint8()
	if err != nil {
		return Variable{}, err
	}
	flags := variableFlag(flagsByte)
	v := Variable{
		Type:             VariableType(typeByte),
		IsChildKey:       flags&varFlagIsChildKey != 0,
		IsConst:          flags&varFlagIsConst != 0,
		IsContainer:      flags&varFlagIsContainer != 0,
		IsRefCounted:     flags&varFlagIsRefCounted != 0,
		CaseSensitiveKey: flags&varFlagIsKeysCaseSensitive != 0,
	}
	if flags&varFlagIsNameHere != 0 {
		name, err := r.ReadUTF8Z()
		if err != nil {
			return Variable{}, err
		}
		v.Name = name
		v.NameHere = true
	}
	if v.IsRefCounted {
		rc, err := r.ReadUint32()
		if err != nil {
			return Variable{}, err
		}
		v.RefCount = rc
		v.HasRefCount = true
	}
	if v.IsContainer {
		kt, err := r.ReadUint8()
		if err != nil {
			return Variable{}, err
		}
		ec, err := r.ReadUint32()
		if err != nil {
			return Variable{}, err
		}
		v.KeyType = kt
		v.ElementCount = ec
		v.HasElementCount = true
	}
	if flags&varFlagIsValueHere != 0 {
		value, subtype, subsubtype, err := readVariableValue(r, v.Type)
		if err != nil {
			return Variable{}, err
		}
		v.Value = value
		v.Subtype = subtype
		v.SubSubtype = subsubtype
	}
	return v, nil
}

// readVariableValue decodes the type-dependent value payload. Scalars are
// fixed-width numeric or IEEE-754; String/Function/Subroutine/Interface/
// Object carry one utf8z; SubtypedObject carries two; AA/Array/List carry
// nothing (handled by the caller via IsValueHere never being set for them
// in a well-formed stream, but we don't assume that — we only read what
// the type tag says to read).
func readVariableValue(r *wire.Reader, t VariableType) (value interface{}, subtype, subsubtype string, err error) {
	switch t {
	case VarBoolean:
		b, err := r.ReadUint8()
		return b != 0, "", "", err
	case VarInteger:
		i, err := r.ReadInt32()
		return i, "", "", err
	case VarLongInteger:
		i, err := r.ReadInt64()
		return i, "", "", err
	case VarFloat:
		f, err := r.ReadFloat32()
		return f, "", "", err
	case VarDouble:
		f, err := r.ReadFloat64()
		return f, "", "", err
	case VarString, VarFunction, VarSubroutine, VarInterface, VarObject:
		s, err := r.ReadUTF8Z()
		return s, "", "", err
	case VarSubtypedObject:
		st, err := r.ReadUTF8Z()
		if err != nil {
			return nil, "", "", err
		}
		sst, err := r.ReadUTF8Z()
		return nil, st, sst, err
	case VarAA, VarArray, VarList, VarInvalid, VarUninitialized, VarUnknown:
		return nil, "", "", nil
	default:
		return nil, "", "", fmt.Errorf("unknown variable type tag %d", t)
	}
}

func readBreakpointsResponse(r *wire.Reader) (BreakpointsResponse, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return BreakpointsResponse{}, err
	}
	out := make([]BreakpointInfo, n)
	for i := uint32(0); i < n; i++ {
		remoteID, err := r.ReadUint32()
		if err != nil {
			return BreakpointsResponse{}, err
		}
		code, err := r.ReadUint32()
		if err != nil {
			return BreakpointsResponse{}, err
		}
		info := BreakpointInfo{RemoteID: remoteID, ErrCode: ErrCode(code)}
		if remoteID != 0 {
			ic, err := r.ReadUint32()
			if err != nil {
				return BreakpointsResponse{}, err
			}
			info.IgnoreCount = ic
			info.HasIgnoreCount = true
		}
		out[i] = info
	}
	return BreakpointsResponse{Breakpoints: out}, nil
}

func readStringList(r *wire.Reader) ([]string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.ReadUTF8Z()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func readExecuteResponse(r *wire.Reader, fs FeatureSet) (ExecuteResponse, error) {
	if !fs.Has(FeatureExecuteReturnsErrors) {
		return ExecuteResponse{}, nil
	}
	runSuccess, err := r.ReadUint8()
	if err != nil {
		return ExecuteResponse{}, err
	}
	runStopCode, err := r.ReadUint8()
	if err != nil {
		return ExecuteResponse{}, err
	}
	compileErrs, err := readStringList(r)
	if err != nil {
		return ExecuteResponse{}, err
	}
	runtimeErrs, err := readStringList(r)
	if err != nil {
		return ExecuteResponse{}, err
	}
	otherErrs, err := readStringList(r)
	if err != nil {
		return ExecuteResponse{}, err
	}
	return ExecuteResponse{
		HasStructuredErrors: true,
		RunSuccess:          runSuccess != 0,
		RunStopCode:         runStopCode,
		CompileErrors:       compileErrs,
		RuntimeErrors:       runtimeErrs,
		OtherErrors:         otherErrs,
	}, nil
}

func readConnectIoPortUpdate(r *wire.Reader) (ConnectIoPortUpdate, error) {
	p, err := r.ReadUint32()
	return ConnectIoPortUpdate{IoPort: p}, err
}

func readAllThreadsStoppedUpdate(r *wire.Reader) (AllThreadsStoppedUpdate, error) {
	idx, err := r.ReadInt32()
	if err != nil {
		return AllThreadsStoppedUpdate{}, err
	}
	reason, err := r.ReadUint8()
	if err != nil {
		return AllThreadsStoppedUpdate{}, err
	}
	detail, err := r.ReadUTF8Z()
	if err != nil {
		return AllThreadsStoppedUpdate{}, err
	}
	return AllThreadsStoppedUpdate{PrimaryThreadIndex: idx, StopReason: StopReason(reason), Detail: detail}, nil
}

func readThreadAttachedUpdate(r *wire.Reader) (ThreadAttachedUpdate, error) {
	idx, err := r.ReadInt32()
	if err != nil {
		return ThreadAttachedUpdate{}, err
	}
	reason, err := r.ReadUint8()
	if err != nil {
		return ThreadAttachedUpdate{}, err
	}
	detail, err := r.ReadUTF8Z()
	if err != nil {
		return ThreadAttachedUpdate{}, err
	}
	return ThreadAttachedUpdate{ThreadIndex: idx, StopReason: StopReason(reason), Detail: detail}, nil
}

func readBreakpointErrorUpdate(r *wire.Reader) (BreakpointErrorUpdate, error) {
	flags, err := r.ReadUint32()
	if err != nil {
		return BreakpointErrorUpdate{}, err
	}
	id, err := r.ReadUint32()
	if err != nil {
		return BreakpointErrorUpdate{}, err
	}
	compileErrs, err := readStringList(r)
	if err != nil {
		return BreakpointErrorUpdate{}, err
	}
	runtimeErrs, err := readStringList(r)
	if err != nil {
		return BreakpointErrorUpdate{}, err
	}
	otherErrs, err := readStringList(r)
	if err != nil {
		return BreakpointErrorUpdate{}, err
	}
	return BreakpointErrorUpdate{
		Flags: flags, BreakpointID: id,
		CompileErrors: compileErrs, RuntimeErrors: runtimeErrs, OtherErrors: otherErrs,
	}, nil
}

func readCompileErrorUpdate(r *wire.Reader) (CompileErrorUpdate, error) {
	flags, err := r.ReadUint32()
	if err != nil {
		return CompileErrorUpdate{}, err
	}
	errStr, err := r.ReadUTF8Z()
	if err != nil {
		return CompileErrorUpdate{}, err
	}
	fileURI, err := r.ReadUTF8Z()
	if err != nil {
		return CompileErrorUpdate{}, err
	}
	line, err := r.ReadUint32()
	if err != nil {
		return CompileErrorUpdate{}, err
	}
	libName, err := r.ReadUTF8Z()
	if err != nil {
		return CompileErrorUpdate{}, err
	}
	return CompileErrorUpdate{Flags: flags, ErrStr: errStr, FileURI: fileURI, Line: line, LibName: libName}, nil
}
