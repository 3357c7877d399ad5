package protocol

// Feature is one of a closed set of capability tokens inferred from a
// Version. Every predicate is a pure function of the version triple plus,
// for a few pre-release windows, the revision timestamp.
type Feature int

const (
	// FeatureStepCommands gates the step request entirely.
	FeatureStepCommands Feature = iota
	// FeatureStepOverOut gates the over/out step sub-types (vs. line-only).
	FeatureStepOverOut
	// FeatureBreakpoints gates add/list/remove breakpoints.
	FeatureBreakpoints
	// FeatureBreakpointURIs gates pkg:/ and lib:/<name>/ URI breakpoint paths.
	FeatureBreakpointURIs
	// FeatureCaseSensitivityOptions gates the variables request's
	// per-path-entry case-insensitivity override.
	FeatureCaseSensitivityOptions
	// FeatureExecuteCommand gates the execute request entirely.
	FeatureExecuteCommand
	// FeatureExecuteReturnsErrors gates the structured compile/runtime/other
	// error lists in the execute response.
	FeatureExecuteReturnsErrors
	// FeatureAlwaysStopOnLaunch indicates the target always stops execution
	// immediately after launch.
	FeatureAlwaysStopOnLaunch
	// FeatureUpdatesHavePacketLength indicates every message from the
	// target is prefixed with a packet_length field.
	FeatureUpdatesHavePacketLength
	// FeatureConditionalBreakpoints gates the add_conditional_breakpoints request.
	FeatureConditionalBreakpoints
	// FeatureConditionalBreakpointsAllowEmptyCondition allows an empty
	// cond_expr to mean "unconditional."
	FeatureConditionalBreakpointsAllowEmptyCondition
	// FeatureErrorFlags gates err_flags and its path-index payloads on
	// error responses.
	FeatureErrorFlags
	// FeatureBugAttachedMessageDuringStep: the target spuriously emits a
	// THREAD_ATTACHED update immediately after a step, which must be
	// suppressed once. Present on every version from 2.0.0 onward; there
	// is no fixed upper bound.
	FeatureBugAttachedMessageDuringStep
	// FeatureBugWrongLineNumberInStacktrace: the target's stacktrace
	// response carries an unreliable line number; callers should prefer
	// the threads response's line number instead.
	FeatureBugWrongLineNumberInStacktrace
)

// revision cutoffs for pre-release fixups, in milliseconds since epoch.
// Versions at or after these timestamps within the named window have the
// fix/feature; versions before it do not, even though the triple alone
// would suggest otherwise.
const (
	revisionBreakpointURIsEnabled = 1650905541605
	revisionErrorFlagsEnabled     = 1658337558223
	revisionLineNumberBugFixed    = 1660254781319
)

// HasFeature computes whether v implies f. O(1): a fixed comparison
// against the version triple and, for a few features, the revision
// timestamp.
func (v Version) HasFeature(f Feature) bool {
	switch f {
	case FeatureStepCommands:
		return v.AtLeast(1, 1, 0)
	case FeatureStepOverOut:
		return v.AtLeast(2, 0, 0)
	case FeatureBreakpoints:
		return v.AtLeast(1, 2, 0)
	case FeatureBreakpointURIs:
		if !v.AtLeast(3, 1, 0) {
			return false
		}
		return v.Revision == 0 || v.Revision >= revisionBreakpointURIsEnabled
	case FeatureCaseSensitivityOptions:
		return v.AtLeast(3, 1, 0)
	case FeatureExecuteCommand:
		return v.AtLeast(2, 1, 0)
	case FeatureExecuteReturnsErrors:
		return v.AtLeast(3, 0, 0)
	case FeatureAlwaysStopOnLaunch:
		return v.AtLeast(2, 0, 0)
	case FeatureUpdatesHavePacketLength:
		return v.AtLeast(3, 0, 0)
	case FeatureConditionalBreakpoints:
		return v.AtLeast(3, 1, 0)
	case FeatureConditionalBreakpointsAllowEmptyCondition:
		return v.AtLeast(3, 1, 1)
	case FeatureErrorFlags:
		if !v.AtLeast(3, 1, 0) {
			return false
		}
		return v.Revision == 0 || v.Revision >= revisionErrorFlagsEnabled
	case FeatureBugAttachedMessageDuringStep:
		return v.AtLeast(2, 0, 0)
	case FeatureBugWrongLineNumberInStacktrace:
		if v.Before(1, 1, 1) {
			return false
		}
		if v.Before(3, 1, 1) {
			return true
		}
		if v.Compare(Version{Major: 3, Minor: 1, Patch: 1}) == 0 {
			return v.Revision != 0 && v.Revision < revisionLineNumberBugFixed
		}
		return false
	default:
		return false
	}
}

// FeatureSet is a convenience snapshot of every feature's value for a
// given Version, computed once after handshake so subsequent queries are
// O(1) map lookups rather than repeated predicate evaluation.
type FeatureSet map[Feature]bool

var allFeatures = []Feature{
	FeatureStepCommands, FeatureStepOverOut, FeatureBreakpoints,
	FeatureBreakpointURIs, FeatureCaseSensitivityOptions, FeatureExecuteCommand,
	FeatureExecuteReturnsErrors, FeatureAlwaysStopOnLaunch,
	FeatureUpdatesHavePacketLength, FeatureConditionalBreakpoints,
	FeatureConditionalBreakpointsAllowEmptyCondition, FeatureErrorFlags,
	FeatureBugAttachedMessageDuringStep, FeatureBugWrongLineNumberInStacktrace,
}

// ComputeFeatureSet snapshots every feature predicate for v.
func ComputeFeatureSet(v Version) FeatureSet {
	fs := make(FeatureSet, len(allFeatures))
	for _, f := range allFeatures {
		fs[f] = v.HasFeature(f)
	}
	return fs
}

// Has reports whether f is enabled in this set.
func (fs FeatureSet) Has(f Feature) bool {
	return fs[f]
}
