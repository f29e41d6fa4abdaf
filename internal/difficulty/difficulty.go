// Package difficulty converts question metrics into difficulty and
// discrimination on the shared logit scale.
package difficulty

import (
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/scale"
	"github.com/abhisek/prepforge/internal/store"
)

// DefaultMinSamples is the answer count below which the band prior is used.
const DefaultMinSamples = 10

// minBucketSamples is the per-bucket answer count below which discrimination
// stays at its default.
const minBucketSamples = 3

// DefaultDiscrimination is used until both ability buckets have data.
const DefaultDiscrimination = 1.0

// Estimator is a pure function of a metrics snapshot and the question band.
type Estimator struct {
	MinSamples int
}

func New(minSamples int) *Estimator {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Estimator{MinSamples: minSamples}
}

// Estimate returns the difficulty in [-3,3]. Below MinSamples answers the
// band's default is returned. Otherwise difficulty = -logit(p) with p the
// clamped correct ratio, so more correct answers never make a question
// look harder.
func (e *Estimator) Estimate(m store.QuestionMetrics, band question.Band) float64 {
	if m.TimesAnswered < e.MinSamples || m.TimesAnswered == 0 {
		return band.DefaultDifficulty()
	}
	p := float64(m.CorrectCount) / float64(m.TimesAnswered)
	return scale.Clamp(-scale.ClampedLogit(p))
}

// Discrimination compares accuracy of responders whose ability was above the
// question's difficulty with those below it. Under a 2PL model with the two
// groups about one logit either side of the difficulty, the logit gap is
// twice the slope, so a = (logit(pHigh) - logit(pLow)) / 2, floored at 0
// and capped at 3.
func (e *Estimator) Discrimination(m store.QuestionMetrics) float64 {
	if m.LowAnswered < minBucketSamples || m.HighAnswered < minBucketSamples {
		return DefaultDiscrimination
	}
	pLow := float64(m.LowCorrect) / float64(m.LowAnswered)
	pHigh := float64(m.HighCorrect) / float64(m.HighAnswered)
	a := (scale.ClampedLogit(pHigh) - scale.ClampedLogit(pLow)) / 2
	switch {
	case a < 0:
		return 0
	case a > 3:
		return 3
	}
	return a
}

// Derive writes both estimates into m. It satisfies metrics.Deriver.
func (e *Estimator) Derive(m *store.QuestionMetrics, band question.Band) {
	m.DifficultyEstimate = e.Estimate(*m, band)
	m.DiscriminationEstimate = e.Discrimination(*m)
}
