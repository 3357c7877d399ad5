package dap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	googledap "github.com/google/go-dap"

	"github.com/bsdebug/client/internal/client"
	"github.com/bsdebug/client/internal/protocol"
)

type launchArguments struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// defaultConnect builds the production Connect function: a real
// client.Client dialing the target directly.
func defaultConnect(logger *slog.Logger) func(context.Context, string, int, func(protocol.Update)) (DebugClient, error) {
	return func(ctx context.Context, host string, port int, onUpdate func(protocol.Update)) (DebugClient, error) {
		c := client.New(logger, onUpdate)
		if err := c.Connect(ctx, host, port); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (b *Bridge) handleLaunch(ctx context.Context, req *googledap.LaunchRequest) {
	var args launchArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		b.writeErrorResponse(req, fmt.Sprintf("parsing launch arguments: %v", err))
		return
	}
	if args.Port == 0 {
		args.Port = protocol.DebuggerPort
	}

	connect := b.connectFunc
	if connect == nil {
		connect = defaultConnect(b.logger)
	}

	debugClient, err := connect(ctx, args.Host, args.Port, b.onDebuggerUpdate)
	if err != nil {
		b.writeErrorResponse(req, fmt.Sprintf("connecting to target: %v", err))
		return
	}

	b.mu.Lock()
	b.debugClient = debugClient
	stopsImmediately := !debugClient.HasFeature(protocol.FeatureAlwaysStopOnLaunch)
	if !stopsImmediately {
		b.stopOnLaunchWait = true
	}
	b.mu.Unlock()

	if out := debugClient.IOOutput(); out != nil {
		packetizer := NewOutputPacketizer(func(text string) {
			b.sendEvent(&googledap.OutputEvent{
				Event: b.newEvent("output"),
				Body:  googledap.OutputEventBody{Category: "stdout", Output: text},
			})
		})
		go packetizer.Run(ctx, out)
	}

	resp := &googledap.LaunchResponse{Response: b.newResponse(&req.Request)}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing launch response", "err", err)
		return
	}

	// original_source's __handle_dap_launch: only announce "initialized"
	// immediately when the target doesn't always stop on launch; otherwise
	// it's deferred until the first stop, since breakpoints set before
	// that point would otherwise race the target's implicit initial halt.
	if stopsImmediately {
		b.sendInitializedEvent()
	}
}

func (b *Bridge) sendInitializedEvent() {
	b.mu.Lock()
	if b.initializedSent {
		b.mu.Unlock()
		return
	}
	b.initializedSent = true
	b.mu.Unlock()

	b.sendEvent(&googledap.InitializedEvent{Event: b.newEvent("initialized")})
}

func (b *Bridge) newEvent(name string) googledap.Event {
	return googledap.Event{
		ProtocolMessage: googledap.ProtocolMessage{Seq: b.nextSeq(), Type: "event"},
		Event:           name,
	}
}

func (b *Bridge) handleConfigurationDone(ctx context.Context, req *googledap.ConfigurationDoneRequest) {
	debugClient := b.client()
	if debugClient != nil && debugClient.HasFeature(protocol.FeatureAlwaysStopOnLaunch) {
		if _, err := debugClient.Send(ctx, protocol.ContinueRequest{}); err != nil {
			b.logger.Error("dap bridge: continuing past implicit initial stop failed", "err", err)
		}
	}

	resp := &googledap.ConfigurationDoneResponse{Response: b.newResponse(&req.Request)}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing configurationDone response", "err", err)
	}

	select {
	case <-b.configDoneCh:
	default:
		close(b.configDoneCh)
	}
}

func (b *Bridge) handleDisconnect(ctx context.Context, req *googledap.DisconnectRequest) {
	if debugClient := b.client(); debugClient != nil {
		if err := debugClient.Shutdown(ctx); err != nil {
			b.logger.Warn("dap bridge: shutdown during disconnect", "err", err)
		}
	}
	resp := &googledap.DisconnectResponse{Response: b.newResponse(&req.Request)}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing disconnect response", "err", err)
	}
}

func (b *Bridge) handleTerminate(ctx context.Context, req *googledap.TerminateRequest) {
	if debugClient := b.client(); debugClient != nil {
		if _, err := debugClient.Send(ctx, protocol.ExitChannelRequest{}); err != nil {
			b.logger.Warn("dap bridge: exitChannel during terminate", "err", err)
		}
	}
	resp := &googledap.TerminateResponse{Response: b.newResponse(&req.Request)}
	if err := b.send(resp); err != nil {
		b.logger.Error("dap bridge: failed writing terminate response", "err", err)
	}
}

// onDebuggerUpdate translates an asynchronous update from the target into
// DAP events, applying the step-bug suppression (spec: some firmware
// versions duplicate a THREAD_ATTACHED message during a step that has
// already resolved via ALL_THREADS_STOPPED).
func (b *Bridge) onDebuggerUpdate(update protocol.Update) {
	switch u := update.(type) {
	case protocol.ThreadAttachedUpdate:
		b.mu.Lock()
		suppress := b.suppressNextAttach
		b.suppressNextAttach = false
		b.mu.Unlock()
		if suppress {
			return
		}
		b.sendStopped(int(u.ThreadIndex), u.StopReason, u.Detail)

	case protocol.AllThreadsStoppedUpdate:
		b.sendStopped(int(u.PrimaryThreadIndex), u.StopReason, u.Detail)

	case protocol.BreakpointErrorUpdate:
		b.sendEvent(&googledap.OutputEvent{
			Event: b.newEvent("output"),
			Body:  googledap.OutputEventBody{Category: "stderr", Output: fmt.Sprintf("breakpoint error: %v\n", u.CompileErrors)},
		})

	case protocol.CompileErrorUpdate:
		b.sendEvent(&googledap.OutputEvent{
			Event: b.newEvent("output"),
			Body:  googledap.OutputEventBody{Category: "stderr", Output: fmt.Sprintf("%s:%d: %s\n", u.FileURI, u.Line, u.ErrStr)},
		})
	}
}

func (b *Bridge) sendStopped(threadIndex int, reason protocol.StopReason, detail string) {
	b.mu.Lock()
	waiting := b.stopOnLaunchWait
	b.stopOnLaunchWait = false
	b.mu.Unlock()

	if waiting {
		b.sendInitializedEvent()
	}

	b.sendEvent(&googledap.StoppedEvent{
		Event: b.newEvent("stopped"),
		Body: googledap.StoppedEventBody{
			Reason:            stopReasonToDAP(reason),
			Description:       detail,
			ThreadId:          threadIndex,
			AllThreadsStopped: true,
		},
	})
}

func stopReasonToDAP(reason protocol.StopReason) string {
	switch reason {
	case protocol.StopReasonBreak:
		return "breakpoint"
	case protocol.StopReasonError:
		return "exception"
	case protocol.StopReasonStopStatement:
		return "pause"
	default:
		return "step"
	}
}

// markSteppingForBugSuppression is called when sending a step request on
// a target with FeatureBugAttachedMessageDuringStep, so the next
// THREAD_ATTACHED update is treated as the known duplicate.
func (b *Bridge) markSteppingForBugSuppression() {
	b.mu.Lock()
	b.suppressNextAttach = true
	b.mu.Unlock()
}
