// Package confidence implements the Confidence Scorer (§4.9): a weighted
// ensemble of validator outcome, quality score, agent health, iteration
// count, and prior-failure history into a single calibrated value in
// [0,1], with the per-signal decomposition preserved for later analysis.
package confidence

// Weights controls how much each signal contributes to the final score.
// Configuration-driven per §4.9; DefaultWeights gives safe starting
// values when no configuration overrides them.
type Weights struct {
	Validator float64
	Quality   float64
	Health    float64
	Iteration float64
	History   float64
}

// DefaultWeights sums to 1.0; Score renormalizes regardless, so a
// configuration that doesn't sum to 1.0 still produces a value in [0,1].
func DefaultWeights() Weights {
	return Weights{
		Validator: 0.30,
		Quality:   0.35,
		Health:    0.10,
		Iteration: 0.10,
		History:   0.15,
	}
}

// Input carries every signal the Confidence Scorer combines.
type Input struct {
	ValidatorOK    bool
	QualityScore   float64 // [0,1], from the Quality Controller
	AgentHealthy   bool    // agent-session process-health indicator
	IterationCount int
	MaxIterations  int
	PriorFailures  int // prior failed attempts recorded against this work item
}

// Result is the calibrated score plus the weighted contribution of each
// signal, persisted alongside the Interaction for calibration analysis.
type Result struct {
	Value         float64
	Decomposition map[string]float64
}

// Score combines the signals in Input using weights into a single value
// in [0,1].
func Score(weights Weights, in Input) Result {
	validatorSignal := boolSignal(in.ValidatorOK)
	qualitySignal := clamp01(in.QualityScore)
	healthSignal := boolSignal(in.AgentHealthy)
	iterationSignal := iterationSignal(in.IterationCount, in.MaxIterations)
	historySignal := historySignal(in.PriorFailures)

	decomposition := map[string]float64{
		"validator": weights.Validator * validatorSignal,
		"quality":   weights.Quality * qualitySignal,
		"health":    weights.Health * healthSignal,
		"iteration": weights.Iteration * iterationSignal,
		"history":   weights.History * historySignal,
	}

	totalWeight := weights.Validator + weights.Quality + weights.Health + weights.Iteration + weights.History
	if totalWeight <= 0 {
		return Result{Value: 0, Decomposition: decomposition}
	}

	var sum float64
	for _, contribution := range decomposition {
		sum += contribution
	}

	return Result{Value: clamp01(sum / totalWeight), Decomposition: decomposition}
}

func boolSignal(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// iterationSignal decays linearly toward 0 as the item approaches
// max-iterations; an unbounded or zero max-iterations is treated as "no
// pressure yet" (signal 1).
func iterationSignal(iteration, max int) float64 {
	if max <= 0 {
		return 1
	}
	remaining := 1 - float64(iteration)/float64(max)
	return clamp01(remaining)
}

// historySignal is 1/(1+priorFailures): 0 failures -> 1.0,
// 1 -> 0.5, 2 -> 0.33, and so on.
func historySignal(priorFailures int) float64 {
	if priorFailures < 0 {
		priorFailures = 0
	}
	return 1 / float64(1+priorFailures)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
