package protocol

// Magic is the 64-bit magic number ("bsdebug\0") exchanged once in each
// direction at session start.
const Magic uint64 = 0x0067756265647362

// DebuggerPort is the target's well-known control port.
const DebuggerPort = 8081

// CommandCode identifies the kind of a request, and — via the pending
// request it correlates to — the shape of its response.
type CommandCode uint32

const (
	CmdStop CommandCode = iota + 1
	CmdContinue
	CmdThreads
	CmdStacktrace
	CmdVariables
	CmdStep
	CmdAddBreakpoints
	CmdListBreakpoints
	CmdRemoveBreakpoints
	CmdExecute
	CmdAddConditionalBreakpoints
	CmdExitChannel
)

func (c CommandCode) String() string {
	switch c {
	case CmdStop:
		return "stop"
	case CmdContinue:
		return "continue"
	case CmdThreads:
		return "threads"
	case CmdStacktrace:
		return "stacktrace"
	case CmdVariables:
		return "variables"
	case CmdStep:
		return "step"
	case CmdAddBreakpoints:
		return "add_breakpoints"
	case CmdListBreakpoints:
		return "list_breakpoints"
	case CmdRemoveBreakpoints:
		return "remove_breakpoints"
	case CmdExecute:
		return "execute"
	case CmdAddConditionalBreakpoints:
		return "add_conditional_breakpoints"
	case CmdExitChannel:
		return "exit_channel"
	default:
		return "unknown_command"
	}
}

// ErrCode is the target's response status.
type ErrCode uint32

const (
	ErrOK ErrCode = iota
	ErrOther
	ErrInvalidProtocol
	ErrCantContinue
	ErrNotStopped
	ErrInvalidArgs
	ErrThreadDetached
	ErrExecutionTimeout
)

func (e ErrCode) String() string {
	switch e {
	case ErrOK:
		return "OK"
	case ErrOther:
		return "OTHER_ERR"
	case ErrInvalidProtocol:
		return "INVALID_PROTOCOL"
	case ErrCantContinue:
		return "CANT_CONTINUE"
	case ErrNotStopped:
		return "NOT_STOPPED"
	case ErrInvalidArgs:
		return "INVALID_ARGS"
	case ErrThreadDetached:
		return "THREAD_DETACHED"
	case ErrExecutionTimeout:
		return "EXECUTION_TIMEOUT"
	default:
		return "UNKNOWN_ERR"
	}
}

// ErrFlag bits accompany an error response when FeatureErrorFlags is enabled.
type ErrFlag uint32

const (
	ErrFlagInvalidValueInPath ErrFlag = 1 << 0
	ErrFlagMissingKeyInPath   ErrFlag = 1 << 1
)

// UpdateType identifies an asynchronous (request_id == 0) message.
type UpdateType uint32

const (
	UpdateConnectIoPort UpdateType = iota + 1
	UpdateAllThreadsStopped
	UpdateThreadAttached
	UpdateBreakpointError
	UpdateCompileError
)

func (u UpdateType) String() string {
	switch u {
	case UpdateConnectIoPort:
		return "CONNECT_IO_PORT"
	case UpdateAllThreadsStopped:
		return "ALL_THREADS_STOPPED"
	case UpdateThreadAttached:
		return "THREAD_ATTACHED"
	case UpdateBreakpointError:
		return "BREAKPOINT_ERROR"
	case UpdateCompileError:
		return "COMPILE_ERROR"
	default:
		return "UNKNOWN_UPDATE"
	}
}

// StepType selects the granularity of a step request.
type StepType uint8

const (
	StepLine StepType = iota
	StepOut
	StepOver
)

// StopReason enumerates why a thread stopped.
type StopReason uint32

const (
	StopReasonUndefined StopReason = iota
	StopReasonNotStopped
	StopReasonNormalExit
	StopReasonStopStatement
	StopReasonBreak
	StopReasonError
)

// VariableType is the closed set of variable type tags.
type VariableType uint8

const (
	VarAA VariableType = iota
	VarArray
	VarBoolean
	VarDouble
	VarFloat
	VarFunction
	VarInteger
	VarInterface
	VarInvalid
	VarList
	VarLongInteger
	VarObject
	VarString
	VarSubroutine
	VarSubtypedObject
	VarUninitialized
	VarUnknown
)

func (t VariableType) String() string {
	switch t {
	case VarAA:
		return "AA"
	case VarArray:
		return "Array"
	case VarBoolean:
		return "Boolean"
	case VarDouble:
		return "Double"
	case VarFloat:
		return "Float"
	case VarFunction:
		return "Function"
	case VarInteger:
		return "Integer"
	case VarInterface:
		return "Interface"
	case VarInvalid:
		return "Invalid"
	case VarList:
		return "List"
	case VarLongInteger:
		return "LongInteger"
	case VarObject:
		return "Object"
	case VarString:
		return "String"
	case VarSubroutine:
		return "Subroutine"
	case VarSubtypedObject:
		return "SubtypedObject"
	case VarUninitialized:
		return "Uninitialized"
	case VarUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// variableFlag bits in a variables response's per-entry flags byte.
type variableFlag uint8

const (
	varFlagIsChildKey          variableFlag = 1 << 0
	varFlagIsConst             variableFlag = 1 << 1
	varFlagIsContainer         variableFlag = 1 << 2
	varFlagIsNameHere          variableFlag = 1 << 3
	varFlagIsRefCounted        variableFlag = 1 << 4
	varFlagIsValueHere         variableFlag = 1 << 5
	varFlagIsKeysCaseSensitive variableFlag = 1 << 6
)

// threadFlag bits in a threads response's per-entry flags byte.
type threadFlag uint8

const (
	threadFlagIsPrimary  threadFlag = 1 << 0
	threadFlagIsDetached threadFlag = 1 << 1 // supplemented: not named by the distilled spec, present on the wire.
)

// variablesRequestFlag bits for the variables request.
type variablesRequestFlag uint8

const (
	varReqFlagGetChildKeys          variablesRequestFlag = 1 << 0
	varReqFlagCaseSensitivityOption variablesRequestFlag = 1 << 1
)
