// Package clienttest provides an in-process TCP target for exercising
// internal/client against real wire bytes without a physical device,
// generalized from original_source's FakeDebuggerClients.py idea of a
// canned stand-in target, built directly against this module's own wire
// format rather than replaying that file's in-process request objects.
package clienttest

import (
	"bytes"
	"fmt"
	"net"

	"github.com/bsdebug/client/internal/protocol"
	"github.com/bsdebug/client/internal/wire"
)

// ReceivedRequest is one decoded request header seen by the fake target.
type ReceivedRequest struct {
	RequestID uint32
	Command   protocol.CommandCode
	Payload   []byte
}

// FakeTarget listens on a loopback port, performs the target side of the
// version handshake, and lets a test script responses and updates onto
// the accepted connection.
type FakeTarget struct {
	listener net.Listener
	version  protocol.Version
	conn     net.Conn
	in       *wire.Reader
	out      *wire.Writer
	features protocol.FeatureSet

	Requests chan ReceivedRequest
}

// NewFakeTarget starts listening on 127.0.0.1 with an OS-assigned port.
func NewFakeTarget(version protocol.Version) (*FakeTarget, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("clienttest: listen: %w", err)
	}
	return &FakeTarget{
		listener: l,
		version:  version,
		Requests: make(chan ReceivedRequest, 32),
	}, nil
}

// Addr returns the host and port a Client should dial.
func (f *FakeTarget) Addr() (string, int) {
	addr := f.listener.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

// Accept blocks until a client connects and completes the handshake,
// then starts the background request-reading loop.
func (f *FakeTarget) Accept() error {
	conn, err := f.listener.Accept()
	if err != nil {
		return fmt.Errorf("clienttest: accept: %w", err)
	}
	f.conn = conn
	f.in = wire.NewReader(conn)
	f.out = wire.NewWriter(conn)

	gotMagic, err := f.in.ReadUint64()
	if err != nil {
		return fmt.Errorf("clienttest: reading client magic: %w", err)
	}
	if gotMagic != protocol.Magic {
		return fmt.Errorf("clienttest: bad magic from client: 0x%016x", gotMagic)
	}
	if err := f.out.WriteUint64(protocol.Magic); err != nil {
		return err
	}
	if err := f.out.WriteUint32(uint32(f.version.Major)); err != nil {
		return err
	}
	if err := f.out.WriteUint32(uint32(f.version.Minor)); err != nil {
		return err
	}
	if err := f.out.WriteUint32(uint32(f.version.Patch)); err != nil {
		return err
	}
	if f.version.Major >= 3 {
		// packet_length is always 12: it counts itself (4 bytes) plus the
		// 8-byte revision that follows.
		if err := f.out.WriteUint32(12); err != nil {
			return err
		}
		if err := f.out.WriteInt64(f.version.Revision); err != nil {
			return err
		}
	}

	f.features = protocol.ComputeFeatureSet(f.version)
	go f.readLoop()
	return nil
}

func (f *FakeTarget) readLoop() {
	for {
		packetSize, err := f.in.ReadUint32()
		if err != nil {
			close(f.Requests)
			return
		}
		requestID, err := f.in.ReadUint32()
		if err != nil {
			close(f.Requests)
			return
		}
		commandCode, err := f.in.ReadUint32()
		if err != nil {
			close(f.Requests)
			return
		}
		remaining := int64(packetSize) - 12
		payload := make([]byte, remaining)
		if remaining > 0 {
			if _, err := f.in.ReadFull(payload); err != nil {
				close(f.Requests)
				return
			}
		}
		f.Requests <- ReceivedRequest{
			RequestID: requestID,
			Command:   protocol.CommandCode(commandCode),
			Payload:   payload,
		}
	}
}

// writeFrame emits one target->client frame: optional packet_length, then
// request_id, err_code and body, matching protocol.DecodeMessage exactly.
func (f *FakeTarget) writeFrame(requestID uint32, errCode protocol.ErrCode, body func(*wire.Writer) error) error {
	var buf bytes.Buffer
	bw := wire.NewWriter(&buf)
	if err := bw.WriteUint32(requestID); err != nil {
		return err
	}
	if err := bw.WriteUint32(uint32(errCode)); err != nil {
		return err
	}
	if err := body(bw); err != nil {
		return err
	}

	if f.features.Has(protocol.FeatureUpdatesHavePacketLength) {
		if err := f.out.WriteUint32(uint32(buf.Len())); err != nil {
			return err
		}
	}
	return f.out.WriteBytes(buf.Bytes())
}

// SendEmptyResponse replies to requestID with a zero-payload response
// (stop/continue/step/exitChannel acknowledgements).
func (f *FakeTarget) SendEmptyResponse(requestID uint32) error {
	return f.writeFrame(requestID, protocol.ErrOK, func(*wire.Writer) error { return nil })
}

// SendThreadsResponse replies to requestID with the given thread list.
func (f *FakeTarget) SendThreadsResponse(requestID uint32, threads []protocol.ThreadInfo) error {
	return f.writeFrame(requestID, protocol.ErrOK, func(w *wire.Writer) error {
		if err := w.WriteUint32(uint32(len(threads))); err != nil {
			return err
		}
		for _, t := range threads {
			flags := uint8(0)
			if t.IsPrimary {
				flags |= 1 << 0
			}
			if t.IsDetached {
				flags |= 1 << 1
			}
			if err := w.WriteUint8(flags); err != nil {
				return err
			}
			if err := w.WriteUint32(uint32(t.StopReason)); err != nil {
				return err
			}
			if err := w.WriteUTF8Z(t.Detail); err != nil {
				return err
			}
			if err := w.WriteUint32(t.Line); err != nil {
				return err
			}
			if err := w.WriteUTF8Z(t.Func); err != nil {
				return err
			}
			if err := w.WriteUTF8Z(t.File); err != nil {
				return err
			}
			if err := w.WriteUTF8Z(t.Snippet); err != nil {
				return err
			}
		}
		return nil
	})
}

// SendAllThreadsStoppedUpdate sends an unsolicited ALL_THREADS_STOPPED
// update (request_id 0).
func (f *FakeTarget) SendAllThreadsStoppedUpdate(primaryThreadIndex int32, reason protocol.StopReason, detail string) error {
	return f.writeFrame(0, protocol.ErrOK, func(w *wire.Writer) error {
		if err := w.WriteUint32(uint32(protocol.UpdateAllThreadsStopped)); err != nil {
			return err
		}
		if err := w.WriteInt32(primaryThreadIndex); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(reason)); err != nil {
			return err
		}
		return w.WriteUTF8Z(detail)
	})
}

// SendConnectIoPortUpdate sends an unsolicited CONNECT_IO_PORT update.
func (f *FakeTarget) SendConnectIoPortUpdate(ioPort uint32) error {
	return f.writeFrame(0, protocol.ErrOK, func(w *wire.Writer) error {
		if err := w.WriteUint32(uint32(protocol.UpdateConnectIoPort)); err != nil {
			return err
		}
		return w.WriteUint32(ioPort)
	})
}

// SendError replies to requestID with an error payload. When the
// negotiated version has FeatureErrorFlags, an empty err_flags word is
// included.
func (f *FakeTarget) SendError(requestID uint32, code protocol.ErrCode) error {
	return f.writeFrame(requestID, code, func(w *wire.Writer) error {
		if f.features.Has(protocol.FeatureErrorFlags) {
			return w.WriteUint32(0)
		}
		return nil
	})
}

// Close shuts down the listener and any accepted connection.
func (f *FakeTarget) Close() error {
	if f.conn != nil {
		f.conn.Close()
	}
	return f.listener.Close()
}
