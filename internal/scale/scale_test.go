package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogitRoundTrip(t *testing.T) {
	for _, p := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		assert.InDelta(t, p, InverseLogit(Logit(p)), 1e-12)
	}
	assert.InDelta(t, 1.0986, Logit(0.75), 1e-4)
}

func TestClampedLogitIsFinite(t *testing.T) {
	assert.Equal(t, Max, ClampedLogit(1))
	assert.Equal(t, Min, ClampedLogit(0))
	assert.InDelta(t, Logit(0.75), ClampedLogit(0.75), 1e-12)
	assert.False(t, math.IsInf(ClampedLogit(1), 0))
	assert.Equal(t, 0.0, ClampedLogit(math.NaN()))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, Max, Clamp(10))
	assert.Equal(t, Min, Clamp(-10))
	assert.Equal(t, 0.5, Clamp(0.5))
}

func TestTargetDifficultyHitsTargetAccuracy(t *testing.T) {
	for _, ability := range []float64{-2, 0, 1.3} {
		for _, target := range []float64{0.6, 0.75, 0.9} {
			d := TargetDifficulty(ability, target)
			assert.InDelta(t, target, ProbabilityCorrect(ability, d), 1e-9)
		}
	}
}

func TestProbabilityCorrect2PL(t *testing.T) {
	assert.InDelta(t, ProbabilityCorrect(0.4, -0.2), ProbabilityCorrect2PL(0.4, -0.2, 1), 1e-12)
	// Steeper slope pushes probability further from 0.5.
	assert.Greater(t, ProbabilityCorrect2PL(1, 0, 2), ProbabilityCorrect2PL(1, 0, 1))
	assert.InDelta(t, 1.0, ProbabilityCorrect2PL(100, -100, 3), 1e-9)
}
