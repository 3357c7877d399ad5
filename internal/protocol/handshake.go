package protocol

import "github.com/bsdebug/client/internal/wire"

// Handshake performs the version/feature exchange of spec §4.3:
// exchange the magic number, read the version triple, and, for major >=
// 3, read a packet_length and revision timestamp with byte-count
// verification. Returns the negotiated Version and its FeatureSet.
func Handshake(in *wire.Reader, out *wire.Writer) (Version, FeatureSet, error) {
	if err := out.WriteUint64(Magic); err != nil {
		return Version{}, nil, wrapErr(KindTransport, err, "writing magic")
	}
	gotMagic, err := in.ReadUint64()
	if err != nil {
		return Version{}, nil, wrapErr(KindTransport, err, "reading magic")
	}
	if gotMagic != Magic {
		return Version{}, nil, newErr(KindTransport, "magic mismatch: got 0x%016x, want 0x%016x", gotMagic, Magic)
	}

	major, err := in.ReadUint32()
	if err != nil {
		return Version{}, nil, wrapErr(KindTransport, err, "reading major version")
	}
	minor, err := in.ReadUint32()
	if err != nil {
		return Version{}, nil, wrapErr(KindTransport, err, "reading minor version")
	}
	patch, err := in.ReadUint32()
	if err != nil {
		return Version{}, nil, wrapErr(KindTransport, err, "reading patch version")
	}

	v := Version{Major: int32(major), Minor: int32(minor), Patch: int32(patch)}
	if !v.Valid() {
		return Version{}, nil, newErr(KindProtocol, "version component out of range: %s", v)
	}

	if v.Major >= 3 {
		in.ResetCount()
		packetLength, err := in.ReadUint32()
		if err != nil {
			return Version{}, nil, wrapErr(KindTransport, err, "reading handshake packet_length")
		}
		revision, err := in.ReadInt64()
		if err != nil {
			return Version{}, nil, wrapErr(KindTransport, err, "reading revision timestamp")
		}
		v.Revision = revision
		if consumed := uint32(in.Count()); consumed != packetLength {
			return Version{}, nil, newErr(KindProtocol, "handshake packet_length mismatch: declared %d, consumed %d", packetLength, consumed)
		}
	}

	if !v.SupportedMajor() {
		return Version{}, nil, newErr(KindProtocol, "unsupported protocol major version %d", v.Major)
	}

	return v, ComputeFeatureSet(v), nil
}
