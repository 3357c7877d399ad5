package protocol

import (
	"fmt"

	"github.com/bsdebug/client/internal/wire"
)

// PendingLookup resolves the command code of a still-outstanding request,
// so the demultiplexer knows how to shape a solicited response. Only a
// lookup is required here — removing the pending entry is the caller's
// responsibility once the full message (and any update-type match for
// commands like step) has been decoded.
type PendingLookup interface {
	CommandForRequestID(id uint32) (CommandCode, bool)
}

// Message is one fully-decoded message from the target: either an error,
// a solicited response, or an asynchronous update.
type Message struct {
	RequestID uint32
	IsError   bool
	Error     ErrorResponse
	Response  Response
	Update    Update
}

// DecodeMessage implements the dispatch rule of spec §4.5: optional
// packet_length, then request_id/err_code, then either an error payload,
// a response shaped by the originating request's command code, or an
// asynchronous update shaped by its own update_type.
func DecodeMessage(in *wire.Reader, fs FeatureSet, pending PendingLookup) (Message, error) {
	var packetLength uint32
	hasPacketLength := fs.Has(FeatureUpdatesHavePacketLength)
	if hasPacketLength {
		pl, err := in.ReadUint32()
		if err != nil {
			return Message{}, wrapErr(KindTransport, err, "reading packet_length")
		}
		packetLength = pl
		in.ResetCount()
	}

	requestID, err := in.ReadUint32()
	if err != nil {
		return Message{}, wrapErr(KindTransport, err, "reading request_id")
	}
	errCode, err := in.ReadUint32()
	if err != nil {
		return Message{}, wrapErr(KindTransport, err, "reading err_code")
	}

	msg := Message{RequestID: requestID}

	switch {
	case ErrCode(errCode) != ErrOK:
		errResp, err := readErrorPayload(in, fs)
		if err != nil {
			return Message{}, wrapErr(KindTransport, err, "reading error payload")
		}
		errResp.Code = ErrCode(errCode)
		msg.IsError = true
		msg.Error = errResp

	case requestID != 0:
		cmd, ok := pending.CommandForRequestID(requestID)
		if !ok {
			return Message{}, newErr(KindLogic, "unknown request id %d in response", requestID)
		}
		resp, err := decodeResponseForCommand(in, fs, cmd)
		if err != nil {
			return Message{}, wrapErr(KindTransport, err, "decoding %s response", cmd)
		}
		msg.Response = resp

	default:
		updateTypeRaw, err := in.ReadUint32()
		if err != nil {
			return Message{}, wrapErr(KindTransport, err, "reading update_type")
		}
		upd, err := decodeUpdate(in, UpdateType(updateTypeRaw))
		if err != nil {
			return Message{}, wrapErr(KindTransport, err, "decoding update")
		}
		msg.Update = upd
	}

	if hasPacketLength {
		consumed := uint32(in.Count())
		if consumed > packetLength {
			return Message{}, newErr(KindProtocol, "packet_length mismatch: declared %d, consumed %d", packetLength, consumed)
		}
		if err := in.Skip(int64(packetLength - consumed)); err != nil {
			return Message{}, wrapErr(KindTransport, err, "skipping packet padding")
		}
	}

	return msg, nil
}

func decodeResponseForCommand(in *wire.Reader, fs FeatureSet, cmd CommandCode) (Response, error) {
	switch cmd {
	case CmdStop, CmdContinue, CmdStep, CmdExitChannel:
		return EmptyResponse{}, nil
	case CmdThreads:
		return readThreadsResponse(in)
	case CmdStacktrace:
		return readStacktraceResponse(in)
	case CmdVariables:
		return readVariablesResponse(in)
	case CmdAddBreakpoints, CmdListBreakpoints, CmdRemoveBreakpoints, CmdAddConditionalBreakpoints:
		return readBreakpointsResponse(in)
	case CmdExecute:
		return readExecuteResponse(in, fs)
	default:
		return nil, fmt.Errorf("unknown command code %d on response", cmd)
	}
}

func decodeUpdate(in *wire.Reader, t UpdateType) (Update, error) {
	switch t {
	case UpdateConnectIoPort:
		return readConnectIoPortUpdate(in)
	case UpdateAllThreadsStopped:
		return readAllThreadsStoppedUpdate(in)
	case UpdateThreadAttached:
		return readThreadAttachedUpdate(in)
	case UpdateBreakpointError:
		return readBreakpointErrorUpdate(in)
	case UpdateCompileError:
		return readCompileErrorUpdate(in)
	default:
		return nil, fmt.Errorf("unknown update_type %d", t)
	}
}

// ResolvesPendingByUpdateType reports whether an asynchronous update of
// type t can resolve a pending request for cmd (e.g. step resolves via
// ALL_THREADS_STOPPED or THREAD_ATTACHED, not a direct response).
func ResolvesPendingByUpdateType(cmd CommandCode, t UpdateType) bool {
	if cmd == CmdStep {
		return t == UpdateAllThreadsStopped || t == UpdateThreadAttached
	}
	return false
}
