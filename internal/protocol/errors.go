package protocol

import "fmt"

// Kind classifies an Error by the failure-semantics bucket it falls in
// (spec §7): Transport/Protocol errors are fatal to the session; Target
// errors are forwarded to the front-end; Logic errors indicate a bug.
type Kind int

const (
	KindTransport Kind = iota
	KindProtocol
	KindLogic
	KindTarget
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindLogic:
		return "logic"
	case KindTarget:
		return "target"
	case KindUser:
		return "user"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged error. Transport and Protocol kinds are fatal to
// the session; Target and User kinds are meant to be surfaced to a
// front-end and do not end the session on their own.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether errors of this kind should terminate the session.
func (e *Error) Fatal() bool {
	return e.Kind == KindTransport || e.Kind == KindProtocol
}

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
