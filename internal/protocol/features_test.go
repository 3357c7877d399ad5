package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHandshakeScenario1 mirrors the literal-valued scenario from spec §8:
// v3.0.0 with revision 1650000000000 should contain
// updates_have_packet_length and execute_returns_errors, but not
// conditional_breakpoints.
func TestHandshakeScenario1(t *testing.T) {
	v := Version{Major: 3, Minor: 0, Patch: 0, Revision: 1650000000000}
	fs := ComputeFeatureSet(v)

	require.True(t, fs.Has(FeatureUpdatesHavePacketLength))
	require.True(t, fs.Has(FeatureExecuteReturnsErrors))
	require.False(t, fs.Has(FeatureConditionalBreakpoints))
}

func TestAlwaysStopOnLaunchScenario6(t *testing.T) {
	v3 := Version{Major: 3, Minor: 0, Patch: 0}
	v2 := Version{Major: 2, Minor: 0, Patch: 0}
	v1 := Version{Major: 1, Minor: 2, Patch: 0}

	require.True(t, ComputeFeatureSet(v3).Has(FeatureAlwaysStopOnLaunch))
	require.True(t, ComputeFeatureSet(v2).Has(FeatureAlwaysStopOnLaunch))
	require.False(t, ComputeFeatureSet(v1).Has(FeatureAlwaysStopOnLaunch))
}

func TestBugAttachedMessageDuringStepHasNoUpperBound(t *testing.T) {
	require.False(t, Version{Major: 1, Minor: 9, Patch: 9}.HasFeature(FeatureBugAttachedMessageDuringStep))
	require.True(t, Version{Major: 2, Minor: 0, Patch: 0}.HasFeature(FeatureBugAttachedMessageDuringStep))
	require.True(t, Version{Major: 3, Minor: 0, Patch: 0}.HasFeature(FeatureBugAttachedMessageDuringStep))
	require.True(t, Version{Major: 3, Minor: 1, Patch: 0}.HasFeature(FeatureBugAttachedMessageDuringStep))
	require.True(t, Version{Major: 5, Minor: 0, Patch: 0}.HasFeature(FeatureBugAttachedMessageDuringStep))
}

func TestExecuteCommandCutoff(t *testing.T) {
	require.False(t, Version{Major: 2, Minor: 0, Patch: 9}.HasFeature(FeatureExecuteCommand))
	require.True(t, Version{Major: 2, Minor: 1, Patch: 0}.HasFeature(FeatureExecuteCommand))
}

func TestCaseSensitivityOptionsCutoff(t *testing.T) {
	require.False(t, Version{Major: 3, Minor: 0, Patch: 9}.HasFeature(FeatureCaseSensitivityOptions))
	require.True(t, Version{Major: 3, Minor: 1, Patch: 0}.HasFeature(FeatureCaseSensitivityOptions))
}

func TestConditionalBreakpointsAllowEmptyConditionCutoff(t *testing.T) {
	require.False(t, Version{Major: 3, Minor: 1, Patch: 0}.HasFeature(FeatureConditionalBreakpointsAllowEmptyCondition))
	require.True(t, Version{Major: 3, Minor: 1, Patch: 1}.HasFeature(FeatureConditionalBreakpointsAllowEmptyCondition))
}

func TestStepCommandsAndBreakpointsCutoffs(t *testing.T) {
	require.False(t, Version{Major: 1, Minor: 0, Patch: 9}.HasFeature(FeatureStepCommands))
	require.True(t, Version{Major: 1, Minor: 1, Patch: 0}.HasFeature(FeatureStepCommands))

	require.False(t, Version{Major: 1, Minor: 1, Patch: 9}.HasFeature(FeatureBreakpoints))
	require.True(t, Version{Major: 1, Minor: 2, Patch: 0}.HasFeature(FeatureBreakpoints))
}

func TestLineNumberBugLowerBound(t *testing.T) {
	require.False(t, Version{Major: 1, Minor: 1, Patch: 0}.HasFeature(FeatureBugWrongLineNumberInStacktrace))
	require.True(t, Version{Major: 1, Minor: 1, Patch: 1}.HasFeature(FeatureBugWrongLineNumberInStacktrace))
}

func TestBreakpointURIsRevisionGate(t *testing.T) {
	enabled := Version{Major: 3, Minor: 1, Patch: 0, Revision: revisionBreakpointURIsEnabled + 1}
	disabledByRevision := Version{Major: 3, Minor: 1, Patch: 0, Revision: revisionBreakpointURIsEnabled - 1}
	tooOld := Version{Major: 3, Minor: 0, Patch: 0, Revision: revisionBreakpointURIsEnabled + 1}

	require.True(t, enabled.HasFeature(FeatureBreakpointURIs))
	require.False(t, disabledByRevision.HasFeature(FeatureBreakpointURIs))
	require.False(t, tooOld.HasFeature(FeatureBreakpointURIs))
}

func TestLineNumberBugFixedAt3_1_1WithRevision(t *testing.T) {
	buggy := Version{Major: 3, Minor: 1, Patch: 1, Revision: revisionLineNumberBugFixed - 1}
	fixed := Version{Major: 3, Minor: 1, Patch: 1, Revision: revisionLineNumberBugFixed + 1}
	laterVersion := Version{Major: 3, Minor: 1, Patch: 2}

	require.True(t, buggy.HasFeature(FeatureBugWrongLineNumberInStacktrace))
	require.False(t, fixed.HasFeature(FeatureBugWrongLineNumberInStacktrace))
	require.False(t, laterVersion.HasFeature(FeatureBugWrongLineNumberInStacktrace))
}

func TestVersionOrdering(t *testing.T) {
	a := Version{Major: 1, Minor: 9, Patch: 9}
	b := Version{Major: 2, Minor: 0, Patch: 0}
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
}

func TestSupportedMajors(t *testing.T) {
	require.True(t, Version{Major: 1}.SupportedMajor())
	require.True(t, Version{Major: 2}.SupportedMajor())
	require.True(t, Version{Major: 3}.SupportedMajor())
	require.False(t, Version{Major: 4}.SupportedMajor())
}
