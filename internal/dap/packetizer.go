package dap

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const outputFlushInterval = 250 * time.Millisecond

// OutputPacketizer batches the I/O Listener's byte stream into DAP
// "output" events on a steady cadence, rather than emitting one event per
// byte. It uses a rate.Limiter instead of a bare ticker so the flush
// cadence composes with the same pacing primitive used for inbound
// request throttling.
type OutputPacketizer struct {
	flush   func(string)
	limiter *rate.Limiter

	mu  sync.Mutex
	buf strings.Builder
}

// NewOutputPacketizer creates a packetizer that calls flush with whatever
// text has accumulated, at most once per outputFlushInterval.
func NewOutputPacketizer(flush func(string)) *OutputPacketizer {
	return &OutputPacketizer{
		flush:   flush,
		limiter: rate.NewLimiter(rate.Every(outputFlushInterval), 1),
	}
}

// Run consumes input until it's closed or ctx is done, flushing
// accumulated text on each limiter tick plus one final flush on exit.
func (p *OutputPacketizer) Run(ctx context.Context, input <-chan string) {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			p.flushNow()
			return
		}

		drained := false
		for !drained {
			select {
			case s, ok := <-input:
				if !ok {
					p.flushNow()
					return
				}
				p.mu.Lock()
				p.buf.WriteString(s)
				p.mu.Unlock()
			default:
				drained = true
			}
		}
		p.flushNow()
	}
}

func (p *OutputPacketizer) flushNow() {
	p.mu.Lock()
	text := p.buf.String()
	p.buf.Reset()
	p.mu.Unlock()

	if text != "" {
		p.flush(text)
	}
}
