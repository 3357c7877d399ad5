package dap

import (
	"context"
	"fmt"

	googledap "github.com/google/go-dap"

	"github.com/bsdebug/client/internal/protocol"
)

func (b *Bridge) handleContinue(ctx context.Context, req *googledap.ContinueRequest) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}
	if _, err := debugClient.Send(ctx, protocol.ContinueRequest{}); err != nil {
		b.writeErrorResponse(req, fmt.Sprintf("continue: %v", err))
		return
	}
	resp := &googledap.ContinueResponse{Response: b.newResponse(&req.Request)}
	resp.Body.AllThreadsContinued = true
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing continue response", "err", err)
	}
}

// handleStep services next/stepIn/stepOut, which all map onto the same
// wire-level step command distinguished only by step type.
func (b *Bridge) handleStep(ctx context.Context, req googledap.RequestMessage, base *googledap.Request, stepType protocol.StepType) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}

	threadIndex, err := threadArgThreadID(req)
	if err != nil {
		b.writeErrorResponse(req, err.Error())
		return
	}

	if debugClient.HasFeature(protocol.FeatureBugAttachedMessageDuringStep) {
		b.markSteppingForBugSuppression()
	}

	if _, err := debugClient.Send(ctx, protocol.StepRequest{ThreadIndex: uint32(threadIndex), StepType: stepType}); err != nil {
		b.writeErrorResponse(req, fmt.Sprintf("step: %v", err))
		return
	}

	b.respondToStep(req, base)
}

func (b *Bridge) respondToStep(req googledap.RequestMessage, base *googledap.Request) {
	resp := b.newResponse(base)
	var msg googledap.Message
	switch base.Command {
	case "next":
		msg = &googledap.NextResponse{Response: resp}
	case "stepIn":
		msg = &googledap.StepInResponse{Response: resp}
	case "stepOut":
		msg = &googledap.StepOutResponse{Response: resp}
	default:
		msg = &googledap.NextResponse{Response: resp}
	}
	if err := b.send(msg); err != nil {
		b.logger.Error("dap bridge: failed writing step response", "err", err)
	}
}

func (b *Bridge) handlePause(ctx context.Context, req *googledap.PauseRequest) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}
	if _, err := debugClient.Send(ctx, protocol.StopRequest{}); err != nil {
		b.writeErrorResponse(req, fmt.Sprintf("pause: %v", err))
		return
	}
	resp := &googledap.PauseResponse{Response: b.newResponse(&req.Request)}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing pause response", "err", err)
	}
}

// threadArgThreadID extracts the ThreadId argument common to the
// next/stepIn/stepOut/pause requests via a minimal structural decode,
// since go-dap types this per-request rather than through one interface.
func threadArgThreadID(req googledap.RequestMessage) (int, error) {
	switch r := req.(type) {
	case *googledap.NextRequest:
		return r.Arguments.ThreadId, nil
	case *googledap.StepInRequest:
		return r.Arguments.ThreadId, nil
	case *googledap.StepOutRequest:
		return r.Arguments.ThreadId, nil
	case *googledap.PauseRequest:
		return r.Arguments.ThreadId, nil
	default:
		return 0, fmt.Errorf("request %T has no threadId argument", req)
	}
}
