package decision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecide_StopPendingWinsFirst(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{StopPending: true, ValidatorOK: false, Confidence: 0})
	require.Equal(t, ActionStop, result.Action)
}

func TestDecide_MaxIterationsEscalates(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{IterationCount: 5, MaxIterations: 5, ValidatorOK: true, Confidence: 1, Quality: 1})
	require.Equal(t, ActionEscalate, result.Action)
	require.Equal(t, "max iterations", result.Reason)
}

func TestDecide_ValidatorRejectedRetriesUnderCap(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{ValidatorOK: false, ConsecutiveRetries: 1, MaxIterations: 5})
	require.Equal(t, ActionRetry, result.Action)
}

func TestDecide_ValidatorRejectedEscalatesAtRetryCap(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{ValidatorOK: false, ConsecutiveRetries: 3, MaxIterations: 5})
	require.Equal(t, ActionEscalate, result.Action)
	require.Equal(t, "retry cap exceeded", result.Reason)
}

func TestDecide_AcceptsOnHighConfidenceAndQuality(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{ValidatorOK: true, Confidence: 0.9, Quality: 0.8, MaxIterations: 5})
	require.Equal(t, ActionAccept, result.Action)
}

func TestDecide_HighConfidenceButLowQualityClarifies(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{ValidatorOK: true, Confidence: 0.9, Quality: 0.5, MaxIterations: 5})
	require.Equal(t, ActionClarify, result.Action)
}

func TestDecide_MediumConfidenceClarifies(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{ValidatorOK: true, Confidence: 0.7, Quality: 0.9, MaxIterations: 5})
	require.Equal(t, ActionClarify, result.Action)
}

func TestDecide_LowConfidenceEscalates(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{ValidatorOK: true, Confidence: 0.3, Quality: 0.9, MaxIterations: 5})
	require.Equal(t, ActionEscalate, result.Action)
	require.Equal(t, "confidence below medium threshold", result.Reason)
}

func TestDecide_ZeroMaxIterationsMeansUnbounded(t *testing.T) {
	result := Decide(DefaultThresholds(), Input{IterationCount: 1000, ValidatorOK: true, Confidence: 0.9, Quality: 0.9})
	require.Equal(t, ActionAccept, result.Action)
}
