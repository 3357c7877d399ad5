package dap

import (
	googledap "github.com/google/go-dap"
)

func (b *Bridge) handleInitialize(req *googledap.InitializeRequest) {
	resp := &googledap.InitializeResponse{
		Response: b.newResponse(&req.Request),
	}
	resp.Body.SupportsConfigurationDoneRequest = true
	resp.Body.SupportsConditionalBreakpoints = true
	resp.Body.SupportsEvaluateForHovers = true
	resp.Body.SupportsTerminateRequest = true
	resp.Body.SupportsDelayedStackTraceLoading = true

	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing initialize response", "err", err)
	}
}

// newResponse builds the common Response envelope for req.
func (b *Bridge) newResponse(req *googledap.Request) googledap.Response {
	return googledap.Response{
		ProtocolMessage: googledap.ProtocolMessage{Seq: b.nextSeq(), Type: "response"},
		RequestSeq:      req.Seq,
		Success:         true,
		Command:         req.Command,
	}
}
