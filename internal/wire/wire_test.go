package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripPrimitives(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteUint8(0xAB))
	require.NoError(t, w.WriteUint32(0xDEADBEEF))
	require.NoError(t, w.WriteUint64(0x1122334455667788))
	require.NoError(t, w.WriteInt32(-42))
	require.NoError(t, w.WriteInt64(-9999999999))
	require.NoError(t, w.WriteFloat32(3.25))
	require.NoError(t, w.WriteFloat64(-1.5e10))
	require.NoError(t, w.WriteUTF8Z("pkg:/source/main.brs"))

	r := NewReader(&buf)

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), u8)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x1122334455667788), u64)

	i32, err := r.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-42), i32)

	i64, err := r.ReadInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-9999999999), i64)

	f32, err := r.ReadFloat32()
	require.NoError(t, err)
	require.Equal(t, float32(3.25), f32)

	f64, err := r.ReadFloat64()
	require.NoError(t, err)
	require.Equal(t, -1.5e10, f64)

	s, err := r.ReadUTF8Z()
	require.NoError(t, err)
	require.Equal(t, "pkg:/source/main.brs", s)

	require.Equal(t, int64(1+4+8+4+8+4+8+21), r.Count())
}

func TestReadUTF8ZEmpty(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0}))
	s, err := r.ReadUTF8Z()
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestShortReadIsFatal(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2}))
	_, err := r.ReadUint32()
	require.Error(t, err)
}

func TestByteCounterTracksSkip(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	_, err := r.ReadUint8()
	require.NoError(t, err)
	require.NoError(t, r.Skip(3))
	require.Equal(t, int64(4), r.Count())
}
