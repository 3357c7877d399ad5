// Package wire implements the little-endian primitive codec used by the
// target's control and I/O protocols: fixed-width integers, IEEE-754
// floats, and null-terminated ("utf8z") strings.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader wraps an io.Reader and counts bytes consumed, so callers can
// verify a decoded message against a declared packet_length.
type Reader struct {
	r     io.Reader
	count int64
}

// NewReader wraps r for counted reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Count returns the number of bytes read so far.
func (r *Reader) Count() int64 {
	return r.count
}

// ResetCount zeroes the byte counter without affecting the underlying reader.
func (r *Reader) ResetCount() {
	r.count = 0
}

func (r *Reader) readFull(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	r.count += int64(n)
	if err != nil {
		return fmt.Errorf("short read: wanted %d bytes, got %d: %w", len(buf), n, err)
	}
	return nil
}

// ReadUint8 reads one unsigned byte.
func (r *Reader) ReadUint8() (uint8, error) {
	var buf [1]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadInt32 reads a little-endian two's-complement int32.
func (r *Reader) ReadInt32() (int32, error) {
	u, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return int32(u), nil
}

// ReadInt64 reads a little-endian two's-complement int64.
func (r *Reader) ReadInt64() (int64, error) {
	u, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

// ReadFloat32 reads an IEEE-754 binary32 value.
func (r *Reader) ReadFloat32() (float32, error) {
	u, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// ReadFloat64 reads an IEEE-754 binary64 value.
func (r *Reader) ReadFloat64() (float64, error) {
	u, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// ReadUTF8Z reads a null-terminated UTF-8 string (the "utf8z" wire shape).
// The trailing zero byte is consumed but not included in the result.
func (r *Reader) ReadUTF8Z() (string, error) {
	var buf []byte
	for {
		b, err := r.ReadUint8()
		if err != nil {
			return "", fmt.Errorf("reading utf8z: %w", err)
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

// ReadFull reads exactly len(buf) bytes into buf, counting them.
func (r *Reader) ReadFull(buf []byte) (int, error) {
	n, err := io.ReadFull(r.r, buf)
	r.count += int64(n)
	return n, err
}

// Skip discards n bytes, counting them.
func (r *Reader) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	written, err := io.CopyN(io.Discard, r.r, n)
	r.count += written
	if err != nil {
		return fmt.Errorf("short read while skipping %d bytes: %w", n, err)
	}
	return nil
}

// Writer wraps an io.Writer and counts bytes produced.
type Writer struct {
	w     io.Writer
	count int64
}

// NewWriter wraps w for counted writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Count returns the number of bytes written so far.
func (w *Writer) Count() int64 {
	return w.count
}

func (w *Writer) writeAll(buf []byte) error {
	n, err := w.w.Write(buf)
	w.count += int64(n)
	if err != nil {
		return fmt.Errorf("short write: wanted %d bytes, wrote %d: %w", len(buf), n, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short write: wanted %d bytes, wrote %d", len(buf), n)
	}
	return nil
}

// WriteUint8 writes one unsigned byte.
func (w *Writer) WriteUint8(v uint8) error {
	return w.writeAll([]byte{v})
}

// WriteUint32 writes a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return w.writeAll(buf[:])
}

// WriteUint64 writes a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return w.writeAll(buf[:])
}

// WriteInt32 writes a little-endian two's-complement int32.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteInt64 writes a little-endian two's-complement int64.
func (w *Writer) WriteInt64(v int64) error {
	return w.WriteUint64(uint64(v))
}

// WriteFloat32 writes an IEEE-754 binary32 value.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 writes an IEEE-754 binary64 value.
func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// WriteBytes writes p verbatim.
func (w *Writer) WriteBytes(p []byte) error {
	return w.writeAll(p)
}

// WriteUTF8Z writes s followed by a trailing zero byte.
func (w *Writer) WriteUTF8Z(s string) error {
	if err := w.writeAll([]byte(s)); err != nil {
		return err
	}
	return w.WriteUint8(0)
}

// SizeUTF8Z returns the number of bytes s occupies on the wire, including
// its trailing zero byte. Useful for pre-computing packet_size.
func SizeUTF8Z(s string) uint32 {
	return uint32(len(s)) + 1
}
