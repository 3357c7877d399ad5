// Package protocol implements the target's wire protocol: version/feature
// negotiation, request encoders, response/update decoders, and the
// demultiplexing dispatch rule that ties them together.
package protocol

import "fmt"

// MaxVersionComponent bounds each component of a version triple.
const MaxVersionComponent = 999

// SupportedMajors is the closed set of protocol majors this client
// understands.
var SupportedMajors = [...]int32{1, 2, 3}

// Version is the (major, minor, patch) triple plus an optional
// pre-release build timestamp, in milliseconds since epoch. A Revision of
// 0 means "not present" (the target didn't send one, e.g. major < 3).
type Version struct {
	Major, Minor, Patch int32
	Revision            int64
}

// Valid reports whether every component is within [0, MaxVersionComponent].
func (v Version) Valid() bool {
	for _, c := range []int32{v.Major, v.Minor, v.Patch} {
		if c < 0 || c > MaxVersionComponent {
			return false
		}
	}
	return true
}

// toInt gives the triple a single total order, ignoring Revision (the
// triple alone determines ordering; Revision only disambiguates feature
// predicates within one triple).
func (v Version) toInt() int64 {
	return int64(v.Major)*1_000_000_000 + int64(v.Minor)*1_000_000 + int64(v.Patch)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, by lexicographic (major, minor, patch) order.
func (v Version) Compare(other Version) int {
	a, b := v.toInt(), other.toInt()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether v >= other.
func (v Version) AtLeast(major, minor, patch int32) bool {
	return v.Compare(Version{Major: major, Minor: minor, Patch: patch}) >= 0
}

// Before reports whether v < other.
func (v Version) Before(major, minor, patch int32) bool {
	return v.Compare(Version{Major: major, Minor: minor, Patch: patch}) < 0
}

// SupportedMajor reports whether v.Major is in the closed set of
// supported majors.
func (v Version) SupportedMajor() bool {
	for _, m := range SupportedMajors {
		if v.Major == m {
			return true
		}
	}
	return false
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
