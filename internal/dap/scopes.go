package dap

import (
	"context"
	"fmt"
	"strings"

	googledap "github.com/google/go-dap"

	"github.com/bsdebug/client/internal/client"
	"github.com/bsdebug/client/internal/protocol"
	"github.com/bsdebug/client/internal/stackref"
)

func (b *Bridge) handleThreads(ctx context.Context, req *googledap.ThreadsRequest) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}
	threadsResp, err := b.ensureThreadsCached(ctx, debugClient)
	if err != nil {
		b.writeErrorResponse(req, err.Error())
		return
	}

	out := make([]googledap.Thread, len(threadsResp.Threads))
	for i, t := range threadsResp.Threads {
		name := t.Func
		if t.IsPrimary {
			name = fmt.Sprintf("%s (primary)", name)
		}
		out[i] = googledap.Thread{Id: i, Name: name}
	}

	resp := &googledap.ThreadsResponse{Response: b.newResponse(&req.Request)}
	resp.Body.Threads = out
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing threads response", "err", err)
	}
}

func (b *Bridge) ensureThreadsCached(ctx context.Context, debugClient DebugClient) (protocol.ThreadsResponse, error) {
	if cached, ok := debugClient.Cache().GetThreads(); ok {
		return cached, nil
	}
	msg, err := debugClient.Send(ctx, protocol.ThreadsRequest{})
	if err != nil {
		return protocol.ThreadsResponse{}, fmt.Errorf("threads: %w", err)
	}
	if msg.IsError {
		return protocol.ThreadsResponse{}, fmt.Errorf("target rejected threads: %s", msg.Error.Code)
	}
	resp, ok := msg.Response.(protocol.ThreadsResponse)
	if !ok {
		return protocol.ThreadsResponse{}, fmt.Errorf("unexpected response shape for threads")
	}
	debugClient.Cache().SetThreads(resp)
	return resp, nil
}

func (b *Bridge) ensureStacktraceCached(ctx context.Context, debugClient DebugClient, threadIndex uint32) (protocol.StacktraceResponse, error) {
	if cached, ok := debugClient.Cache().GetStacktrace(threadIndex); ok {
		return cached, nil
	}
	msg, err := debugClient.Send(ctx, protocol.StacktraceRequest{ThreadIndex: threadIndex})
	if err != nil {
		return protocol.StacktraceResponse{}, fmt.Errorf("stacktrace: %w", err)
	}
	if msg.IsError {
		return protocol.StacktraceResponse{}, fmt.Errorf("target rejected stacktrace: %s", msg.Error.Code)
	}
	resp, ok := msg.Response.(protocol.StacktraceResponse)
	if !ok {
		return protocol.StacktraceResponse{}, fmt.Errorf("unexpected response shape for stacktrace")
	}
	debugClient.Cache().SetStacktrace(threadIndex, resp)
	return resp, nil
}

func (b *Bridge) ensureVariablesCached(ctx context.Context, debugClient DebugClient, t stackref.Triplet, id int64, getChildKeys bool) (protocol.VariablesResponse, error) {
	key := client.VariablesKey{StackRefID: id, GetChildKeys: getChildKeys}
	if cached, ok := debugClient.Cache().GetVariables(key); ok {
		return cached, nil
	}

	path := make([]protocol.PathEntry, len(t.Path))
	for i, p := range t.Path {
		path[i] = protocol.PathEntry{Name: p}
	}

	msg, err := debugClient.Send(ctx, protocol.VariablesRequest{
		ThreadIndex:  t.ThreadIndex,
		FrameIndex:   t.FrameIndex,
		Path:         path,
		GetChildKeys: getChildKeys,
	})
	if err != nil {
		return protocol.VariablesResponse{}, fmt.Errorf("variables: %w", err)
	}
	if msg.IsError {
		return protocol.VariablesResponse{}, fmt.Errorf("target rejected variables: %s", msg.Error.Code)
	}
	resp, ok := msg.Response.(protocol.VariablesResponse)
	if !ok {
		return protocol.VariablesResponse{}, fmt.Errorf("unexpected response shape for variables")
	}
	debugClient.Cache().SetVariables(key, resp)
	return resp, nil
}

func (b *Bridge) handleStackTrace(ctx context.Context, req *googledap.StackTraceRequest) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}

	threadIndex := uint32(req.Arguments.ThreadId)
	stack, err := b.ensureStacktraceCached(ctx, debugClient, threadIndex)
	if err != nil {
		b.writeErrorResponse(req, err.Error())
		return
	}

	frames := make([]googledap.StackFrame, len(stack.Frames))
	for i, f := range stack.Frames {
		id := b.stackRefs.GetOrAllocate(stackref.Triplet{ThreadIndex: threadIndex, FrameIndex: uint32(i)})
		frames[i] = googledap.StackFrame{
			Id:     int(id),
			Name:   f.Func,
			Line:   int(f.Line),
			Source: &googledap.Source{Path: f.File},
		}
	}

	resp := &googledap.StackTraceResponse{Response: b.newResponse(&req.Request)}
	resp.Body.StackFrames = frames
	resp.Body.TotalFrames = len(frames)
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing stackTrace response", "err", err)
	}
}

func (b *Bridge) handleScopes(ctx context.Context, req *googledap.ScopesRequest) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}

	frameID := int64(req.Arguments.FrameId)
	triplet, ok := b.stackRefs.Decode(frameID)
	if !ok {
		b.writeErrorResponse(req, fmt.Sprintf("unknown frameId %d", req.Arguments.FrameId))
		return
	}

	if _, err := b.ensureThreadsCached(ctx, debugClient); err != nil {
		b.writeErrorResponse(req, err.Error())
		return
	}
	if _, err := b.ensureStacktraceCached(ctx, debugClient, triplet.ThreadIndex); err != nil {
		b.writeErrorResponse(req, err.Error())
		return
	}
	variables, err := b.ensureVariablesCached(ctx, debugClient, triplet, frameID, false)
	if err != nil {
		b.writeErrorResponse(req, err.Error())
		return
	}

	resp := &googledap.ScopesResponse{Response: b.newResponse(&req.Request)}
	resp.Body.Scopes = []googledap.Scope{
		{
			Name:               "Locals",
			VariablesReference: int(frameID),
			NamedVariables:     len(variables.Variables),
		},
	}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing scopes response", "err", err)
	}
}

func (b *Bridge) handleVariables(ctx context.Context, req *googledap.VariablesRequest) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}

	id := int64(req.Arguments.VariablesReference)
	triplet, ok := b.stackRefs.Decode(id)
	if !ok {
		b.writeErrorResponse(req, fmt.Sprintf("unknown variablesReference %d", req.Arguments.VariablesReference))
		return
	}

	resp, err := b.ensureVariablesCached(ctx, debugClient, triplet, id, false)
	if err != nil {
		b.writeErrorResponse(req, err.Error())
		return
	}

	out := make([]googledap.Variable, len(resp.Variables))
	for i, v := range resp.Variables {
		varRef := 0
		if v.IsContainer {
			childID, err := b.stackRefs.GetChild(id, v.Name)
			if err == nil {
				varRef = int(childID)
			}
		}
		out[i] = googledap.Variable{
			Name:               v.Name,
			Value:              formatVariableValue(v),
			Type:               variableTypeName(v),
			VariablesReference: varRef,
		}
	}

	dapResp := &googledap.VariablesResponse{Response: b.newResponse(&req.Request)}
	dapResp.Body.Variables = out
	if err := b.send(dapResp); err != nil {
		b.logger.Error("dap bridge: failed writing variables response", "err", err)
	}
}

func (b *Bridge) handleEvaluate(ctx context.Context, req *googledap.EvaluateRequest) {
	debugClient := b.client()
	if debugClient == nil {
		b.writeErrorResponse(req, "no active debug session")
		return
	}

	frameID := int64(req.Arguments.FrameId)
	triplet, ok := b.stackRefs.Decode(frameID)
	if !ok {
		b.writeErrorResponse(req, fmt.Sprintf("unknown frameId %d", req.Arguments.FrameId))
		return
	}

	exprPath := append([]string(nil), triplet.Path...)
	for _, part := range strings.Split(req.Arguments.Expression, ".") {
		exprPath = append(exprPath, strings.ToLower(part))
	}
	exprTriplet := stackref.Triplet{ThreadIndex: triplet.ThreadIndex, FrameIndex: triplet.FrameIndex, Path: exprPath}
	exprID := b.stackRefs.GetOrAllocate(exprTriplet)

	resp, err := b.ensureVariablesCached(ctx, debugClient, exprTriplet, exprID, false)
	if err != nil {
		b.writeErrorResponse(req, fmt.Sprintf("evaluate: %v", err))
		return
	}
	if len(resp.Variables) == 0 {
		b.writeErrorResponse(req, "evaluate: target returned no value")
		return
	}

	v := resp.Variables[0]
	varRef := 0
	if v.IsContainer {
		if childID, err := b.stackRefs.GetChild(exprID, v.Name); err == nil {
			varRef = int(childID)
		}
	}

	dapResp := &googledap.EvaluateResponse{Response: b.newResponse(&req.Request)}
	dapResp.Body.Result = formatVariableValue(v)
	dapResp.Body.Type = variableTypeName(v)
	dapResp.Body.VariablesReference = varRef
	if err := b.send(dapResp); err != nil {
		b.logger.Error("dap bridge: failed writing evaluate response", "err", err)
	}
}

func formatVariableValue(v protocol.Variable) string {
	if v.Value == nil {
		return ""
	}
	return fmt.Sprintf("%v", v.Value)
}

func variableTypeName(v protocol.Variable) string {
	if v.Subtype != "" {
		return v.Subtype
	}
	return fmt.Sprintf("%v", v.Type)
}
