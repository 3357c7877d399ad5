package client

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// ioListener is the Debugger I/O Listener (spec §4.8): a dedicated reader
// on the target's I/O port, forwarding the running program's stdout byte
// by byte, generalized from original_source's DebuggerIOListener.py.
type ioListener struct {
	logger    *slog.Logger
	sessionID string

	mu   sync.Mutex
	conn net.Conn

	output chan string

	saveMu     sync.Mutex
	saving     bool
	saveBuffer []byte
	savedLines []string
}

func newIOListener(logger *slog.Logger, sessionID string) *ioListener {
	return &ioListener{
		logger:    logger,
		sessionID: sessionID,
		output:    make(chan string, 64),
	}
}

func (l *ioListener) connect(host string, port int) error {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("io listener: connecting to %s:%d: %w", host, port, err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go l.run(conn)
	return nil
}

func (l *ioListener) run(conn net.Conn) {
	defer close(l.output)
	r := bufio.NewReader(conn)
	for {
		b, err := r.ReadByte()
		if err != nil {
			l.logger.Debug("io listener: stream closed", "err", err, "session_id", l.sessionID)
			return
		}
		l.output <- string(b)
		l.addToSaveBuffer(b)
	}
}

// SetSaveOutput toggles line buffering for test harnesses that want to
// inspect the target's output after the fact, mirroring set_save_output.
func (l *ioListener) SetSaveOutput(enable bool) {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	if enable == l.saving {
		return
	}
	l.saving = enable
	l.saveBuffer = nil
	l.savedLines = nil
}

// SavedLines returns and clears lines accumulated since the last call.
func (l *ioListener) SavedLines() []string {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	lines := l.savedLines
	l.savedLines = nil
	return lines
}

func (l *ioListener) addToSaveBuffer(b byte) {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	if !l.saving {
		return
	}
	if b == '\n' {
		l.savedLines = append(l.savedLines, string(l.saveBuffer))
		l.saveBuffer = nil
		return
	}
	l.saveBuffer = append(l.saveBuffer, b)
}

func (l *ioListener) stop() {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
