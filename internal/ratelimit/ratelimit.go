// Package ratelimit provides a small per-operation token-bucket limiter,
// generalized from the teacher's security rate limiter and used by the DAP
// bridge to throttle inbound requests. (The DAP output packetizer paces
// itself with its own rate.Limiter and does not use this package.)
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limits describes one named operation's rate and burst allowance.
type Limits struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter manages one rate.Limiter per named operation, created lazily on
// first use.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	defaults map[string]Limits
}

// New creates a Limiter. defaults maps operation name to its limits; a
// name not present in defaults falls back to the "default" entry if
// present, or an unrestricted limiter otherwise.
func New(defaults map[string]Limits) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: defaults,
	}
}

func (l *Limiter) get(operation string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[operation]; ok {
		return lim
	}

	limits, ok := l.defaults[operation]
	if !ok {
		limits, ok = l.defaults["default"]
	}

	var lim *rate.Limiter
	if !ok || limits.RequestsPerSecond <= 0 {
		lim = rate.NewLimiter(rate.Inf, 1)
	} else {
		lim = rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), limits.Burst)
	}
	l.limiters[operation] = lim
	return lim
}

// Allow reports whether operation is allowed right now, consuming a token
// if so.
func (l *Limiter) Allow(operation string) bool {
	return l.get(operation).Allow()
}

// Wait blocks until operation is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, operation string) error {
	return l.get(operation).Wait(ctx)
}

// WaitTimeout is a convenience wrapper applying a fixed timeout.
func (l *Limiter) WaitTimeout(operation string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Wait(ctx, operation)
}
