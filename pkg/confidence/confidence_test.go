package confidence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore_PerfectSignalsYieldHighConfidence(t *testing.T) {
	result := Score(DefaultWeights(), Input{
		ValidatorOK:    true,
		QualityScore:   1.0,
		AgentHealthy:   true,
		IterationCount: 1,
		MaxIterations:  5,
		PriorFailures:  0,
	})

	require.Greater(t, result.Value, 0.85)
	require.Len(t, result.Decomposition, 5)
}

func TestScore_FailedValidatorLowersConfidence(t *testing.T) {
	passing := Score(DefaultWeights(), Input{ValidatorOK: true, QualityScore: 0.8, MaxIterations: 5})
	failing := Score(DefaultWeights(), Input{ValidatorOK: false, QualityScore: 0.8, MaxIterations: 5})

	require.Less(t, failing.Value, passing.Value)
}

func TestScore_PriorFailuresLowerConfidence(t *testing.T) {
	fresh := Score(DefaultWeights(), Input{ValidatorOK: true, QualityScore: 0.8, MaxIterations: 5, PriorFailures: 0})
	scarred := Score(DefaultWeights(), Input{ValidatorOK: true, QualityScore: 0.8, MaxIterations: 5, PriorFailures: 4})

	require.Less(t, scarred.Value, fresh.Value)
}

func TestScore_HighIterationCountLowersConfidence(t *testing.T) {
	early := Score(DefaultWeights(), Input{ValidatorOK: true, QualityScore: 0.8, IterationCount: 1, MaxIterations: 5})
	late := Score(DefaultWeights(), Input{ValidatorOK: true, QualityScore: 0.8, IterationCount: 5, MaxIterations: 5})

	require.Less(t, late.Value, early.Value)
}

func TestScore_ZeroWeightsYieldZero(t *testing.T) {
	result := Score(Weights{}, Input{ValidatorOK: true, QualityScore: 1, AgentHealthy: true})
	require.Equal(t, 0.0, result.Value)
}

func TestScore_AlwaysClampedToUnitInterval(t *testing.T) {
	result := Score(DefaultWeights(), Input{ValidatorOK: true, QualityScore: 5, MaxIterations: 5})
	require.LessOrEqual(t, result.Value, 1.0)
}
