// Package scale holds the logit-scale arithmetic shared by the ability and
// difficulty estimators so that both land on the same comparable axis.
package scale

import "math"

const (
	// Min and Max bound every ability and difficulty value.
	Min = -3.0
	Max = 3.0

	// MinProbability and MaxProbability keep logits finite.
	MinProbability = 0.02
	MaxProbability = 0.98

	// maxExponent caps the logistic exponent to avoid overflow in math.Exp.
	maxExponent = 30.0
)

// Logit is ln(p / (1-p)). Callers clamp p first.
func Logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// InverseLogit is the logistic function 1 / (1 + e^-x).
func InverseLogit(x float64) float64 {
	x = math.Max(-maxExponent, math.Min(maxExponent, x))
	return 1 / (1 + math.Exp(-x))
}

// ClampProbability pulls p into [MinProbability, MaxProbability].
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return 0.5
	}
	return math.Max(MinProbability, math.Min(MaxProbability, p))
}

// Clamp pulls x into [Min, Max].
func Clamp(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(Min, math.Min(Max, x))
}

// ClampedLogit converts an accuracy into a bounded logit-scale value.
func ClampedLogit(p float64) float64 {
	return Clamp(Logit(ClampProbability(p)))
}

// ProbabilityCorrect is the one-parameter logistic response model
// P(correct) = 1 / (1 + e^(difficulty - ability)).
func ProbabilityCorrect(ability, difficulty float64) float64 {
	return InverseLogit(ability - difficulty)
}

// ProbabilityCorrect2PL adds a discrimination slope to ProbabilityCorrect.
func ProbabilityCorrect2PL(ability, difficulty, discrimination float64) float64 {
	return InverseLogit(discrimination * (ability - difficulty))
}

// TargetDifficulty returns the difficulty at which a learner of the given
// ability answers correctly with probability targetAccuracy under the
// one-parameter model.
func TargetDifficulty(ability, targetAccuracy float64) float64 {
	return ability - Logit(targetAccuracy)
}
