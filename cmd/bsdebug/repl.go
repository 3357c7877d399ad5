package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bsdebug/client/internal/breakpoint"
	"github.com/bsdebug/client/internal/client"
	"github.com/bsdebug/client/internal/protocol"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive line-oriented session against a connected target",
	RunE:  runREPL,
}

// repl holds the state a line-at-a-time session needs across commands,
// mirroring the teacher's pattern of one long-lived struct per command
// rather than passing loose locals around.
type repl struct {
	client      *client.Client
	breakpoints *breakpoint.Manager
	out         *os.File
}

func runREPL(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	host, port, err := sess.requireHost()
	if err != nil {
		return err
	}

	r := &repl{breakpoints: breakpoint.NewManager(), out: os.Stdout}
	r.client = client.New(sess.logger, r.onUpdate)

	ctx := context.Background()
	fmt.Fprintf(r.out, "connecting to %s:%d...\n", host, port)
	if err := r.client.Connect(ctx, host, port); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	fmt.Fprintf(r.out, "connected, protocol %s\n", r.client.ProtocolVersion().String())

	go r.drainIO()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(r.out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if err := r.dispatch(ctx, line); err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
		}
		if r.client.State() == client.StateShutdown {
			break
		}
		fmt.Fprint(r.out, "> ")
	}
	return nil
}

func (r *repl) onUpdate(u protocol.Update) {
	switch v := u.(type) {
	case protocol.AllThreadsStoppedUpdate:
		fmt.Fprintf(r.out, "\nstopped: thread %d, %s\n> ", v.PrimaryThreadIndex, v.Detail)
	case protocol.ThreadAttachedUpdate:
		fmt.Fprintf(r.out, "\nthread attached: %d, %s\n> ", v.ThreadIndex, v.Detail)
	case protocol.CompileErrorUpdate:
		fmt.Fprintf(r.out, "\ncompile error: %s (%s:%d)\n> ", v.ErrStr, v.FileURI, v.Line)
	case protocol.BreakpointErrorUpdate:
		fmt.Fprintf(r.out, "\nbreakpoint error on id %d\n> ", v.BreakpointID)
	}
}

// drainIO waits for the I/O Listener to come up (it starts lazily once the
// target reports its I/O port) and prints whatever it decodes.
func (r *repl) drainIO() {
	var ch <-chan string
	for ch == nil {
		if r.client.State() == client.StateShutdown || r.client.State() == client.StateDisconnected {
			return
		}
		time.Sleep(100 * time.Millisecond)
		ch = r.client.IOOutput()
	}
	for line := range ch {
		fmt.Fprintf(r.out, "\n[target] %s\n> ", line)
	}
}

func (r *repl) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case "continue", "c":
		_, err := r.client.Send(ctx, protocol.ContinueRequest{})
		return err

	case "step", "s":
		return r.step(ctx, rest, protocol.StepLine)
	case "stepout", "so":
		return r.step(ctx, rest, protocol.StepOut)
	case "stepover", "sv":
		return r.step(ctx, rest, protocol.StepOver)

	case "threads", "t":
		return r.threads(ctx)

	case "stack", "bt":
		return r.stacktrace(ctx, rest)

	case "break", "b":
		return r.addBreakpoint(rest)

	case "delete", "d":
		return r.deleteBreakpoint(rest)

	case "quit", "exit", "q":
		return r.client.Shutdown(ctx)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (r *repl) step(ctx context.Context, args []string, stepType protocol.StepType) error {
	threadIdx := uint32(0)
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad thread index %q: %w", args[0], err)
		}
		threadIdx = uint32(n)
	}
	_, err := r.client.Send(ctx, protocol.StepRequest{ThreadIndex: threadIdx, StepType: stepType})
	return err
}

func (r *repl) threads(ctx context.Context) error {
	msg, err := r.client.Send(ctx, protocol.ThreadsRequest{})
	if err != nil {
		return err
	}
	resp, ok := msg.Response.(protocol.ThreadsResponse)
	if !ok {
		return fmt.Errorf("unexpected response to threads")
	}
	for i, th := range resp.Threads {
		marker := " "
		if th.IsPrimary {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %d: %s:%d in %s\n", marker, i, th.File, th.Line, th.Func)
	}
	return nil
}

func (r *repl) stacktrace(ctx context.Context, args []string) error {
	threadIdx := uint32(0)
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad thread index %q: %w", args[0], err)
		}
		threadIdx = uint32(n)
	}
	msg, err := r.client.Send(ctx, protocol.StacktraceRequest{ThreadIndex: threadIdx})
	if err != nil {
		return err
	}
	resp, ok := msg.Response.(protocol.StacktraceResponse)
	if !ok {
		return fmt.Errorf("unexpected response to stacktrace")
	}
	for i, f := range resp.Frames {
		fmt.Fprintf(r.out, "#%d %s:%d in %s\n", i, f.File, f.Line, f.Func)
	}
	return nil
}

func (r *repl) addBreakpoint(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: break <uri> <line>")
	}
	line, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad line %q: %w", args[1], err)
	}
	bp := r.breakpoints.AddOrUpdate(breakpoint.Breakpoint{URI: args[0], Line: uint32(line)})
	fmt.Fprintf(r.out, "breakpoint %d recorded at %s:%d (local only, not sent to the target)\n", bp.LocalID, bp.URI, bp.Line)
	return nil
}

func (r *repl) deleteBreakpoint(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: delete <local-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad id %q: %w", args[0], err)
	}
	if !r.breakpoints.RemoveByLocalID(uint32(id)) {
		return fmt.Errorf("no breakpoint with local id %d", id)
	}
	fmt.Fprintf(r.out, "removed breakpoint %d\n", id)
	return nil
}
