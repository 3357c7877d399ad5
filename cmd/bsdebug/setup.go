package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bsdebug/client/internal/config"
	"github.com/bsdebug/client/internal/obslog"
	"github.com/bsdebug/client/internal/ratelimit"
)

// session bundles the pieces every front-end needs, built once from flags
// and an optional config file.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	ring    *obslog.RingHandler
	limiter *ratelimit.Limiter
}

func newSession() (*session, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if targetHost != "" {
		cfg.TargetHost = targetHost
	}
	if targetPort != 0 {
		cfg.ControlPort = targetPort
	}

	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger, ring := obslog.NewLogger(stderrHandler, cfg.Log.RingBufferSize)

	limiter := ratelimit.New(map[string]ratelimit.Limits{
		"default": {RequestsPerSecond: cfg.RateLimit.DAPRequestsPerSecond, Burst: cfg.RateLimit.DAPBurst},
	})

	return &session{cfg: cfg, logger: logger, ring: ring, limiter: limiter}, nil
}

func (s *session) requireHost() (string, int, error) {
	if s.cfg.TargetHost == "" {
		return "", 0, fmt.Errorf("no target host given: pass --host or set target_host in the config file")
	}
	return s.cfg.TargetHost, s.cfg.ControlPort, nil
}
