package dap

import (
	"context"
	"fmt"

	googledap "github.com/google/go-dap"

	"github.com/bsdebug/client/internal/breakpoint"
	"github.com/bsdebug/client/internal/protocol"
)

func (b *Bridge) handleSetBreakpoints(ctx context.Context, req *googledap.SetBreakpointsRequest) {
	debugClient := b.client()
	uri := req.Arguments.Source.Path

	// Remove every remote breakpoint previously registered for this
	// source; the request always carries the full desired set for uri.
	for _, existing := range b.breakpoints.All() {
		if existing.URI == uri && existing.RemoteID != 0 {
			if debugClient != nil {
				_, _ = debugClient.Send(ctx, protocol.RemoveBreakpointsRequest{RemoteIDs: []uint32{existing.RemoteID}})
			}
			b.breakpoints.RemoveByLocalID(existing.LocalID)
		}
	}

	results := make([]googledap.Breakpoint, 0, len(req.Arguments.Breakpoints))
	if debugClient == nil {
		for range req.Arguments.Breakpoints {
			results = append(results, googledap.Breakpoint{Verified: false, Message: "no active debug session"})
		}
		b.respondSetBreakpoints(req, results)
		return
	}

	hasConditional := debugClient.HasFeature(protocol.FeatureConditionalBreakpoints)
	anyConditional := false
	for _, bp := range req.Arguments.Breakpoints {
		if bp.Condition != "" {
			anyConditional = true
		}
	}

	var resp protocol.Message
	var err error
	if hasConditional && anyConditional {
		entries := make([]protocol.AddConditionalBreakpointEntry, len(req.Arguments.Breakpoints))
		for i, bp := range req.Arguments.Breakpoints {
			entries[i] = protocol.AddConditionalBreakpointEntry{
				URI: uri, Line: uint32(bp.Line), CondExpr: bp.Condition,
			}
		}
		resp, err = debugClient.Send(ctx, protocol.AddConditionalBreakpointsRequest{Breakpoints: entries})
	} else {
		entries := make([]protocol.AddBreakpointEntry, len(req.Arguments.Breakpoints))
		for i, bp := range req.Arguments.Breakpoints {
			entries[i] = protocol.AddBreakpointEntry{Path: uri, Line: uint32(bp.Line)}
		}
		resp, err = debugClient.Send(ctx, protocol.AddBreakpointsRequest{Breakpoints: entries})
	}

	if err != nil {
		b.writeErrorResponse(req, fmt.Sprintf("setBreakpoints: %v", err))
		return
	}
	if resp.IsError {
		b.writeErrorResponse(req, fmt.Sprintf("target rejected breakpoints: %s", resp.Error.Code))
		return
	}

	bpResp, ok := resp.Response.(protocol.BreakpointsResponse)
	if !ok {
		b.writeErrorResponse(req, "unexpected response shape for setBreakpoints")
		return
	}

	for i, info := range bpResp.Breakpoints {
		if i >= len(req.Arguments.Breakpoints) {
			break
		}
		dapLine := req.Arguments.Breakpoints[i]
		local := b.breakpoints.AddOrUpdate(breakpoint.Breakpoint{
			URI:      uri,
			Line:     uint32(dapLine.Line),
			RemoteID: info.RemoteID,
		})
		verified := info.ErrCode == protocol.ErrOK
		results = append(results, googledap.Breakpoint{
			Id:       int(local.LocalID),
			Verified: verified,
			Line:     dapLine.Line,
			Source:   &req.Arguments.Source,
		})
	}

	b.respondSetBreakpoints(req, results)
}

func (b *Bridge) respondSetBreakpoints(req *googledap.SetBreakpointsRequest, results []googledap.Breakpoint) {
	resp := &googledap.SetBreakpointsResponse{Response: b.newResponse(&req.Request)}
	resp.Body.Breakpoints = results
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing setBreakpoints response", "err", err)
	}
}

// handleSetExceptionBreakpoints always returns an empty accepted set: the
// target's breakpoint model has no equivalent of exception filters, so
// there's nothing to translate (spec non-goal).
func (b *Bridge) handleSetExceptionBreakpoints(req *googledap.SetExceptionBreakpointsRequest) {
	resp := &googledap.SetExceptionBreakpointsResponse{Response: b.newResponse(&req.Request)}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing setExceptionBreakpoints response", "err", err)
	}
}
