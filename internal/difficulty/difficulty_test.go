package difficulty

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

func TestEstimate_ColdStartUsesBand(t *testing.T) {
	e := New(10)
	tests := []struct {
		band question.Band
		want float64
	}{
		{question.BandEasy, -1},
		{question.BandMedium, 0},
		{question.BandHard, 1},
		{question.BandExpert, 2},
		{"", 0},
	}
	for _, tt := range tests {
		m := store.QuestionMetrics{TimesAnswered: 9, CorrectCount: 9}
		assert.Equal(t, tt.want, e.Estimate(m, tt.band), "band %q", tt.band)
	}
}

func TestEstimate_Empirical(t *testing.T) {
	e := New(10)

	half := e.Estimate(store.QuestionMetrics{TimesAnswered: 10, CorrectCount: 5}, question.BandHard)
	assert.InDelta(t, 0, half, 1e-12)

	allRight := e.Estimate(store.QuestionMetrics{TimesAnswered: 50, CorrectCount: 50}, question.BandHard)
	// logit(0.98) exceeds the scale, so the estimate pins to the edge.
	assert.Equal(t, -3.0, allRight)

	allWrong := e.Estimate(store.QuestionMetrics{TimesAnswered: 50}, question.BandEasy)
	assert.Equal(t, 3.0, allWrong)
}

func TestEstimate_MonotoneInCorrectCount(t *testing.T) {
	e := New(10)
	for _, n := range []int{10, 11, 37, 200} {
		prev := math.Inf(1)
		for c := 0; c <= n; c++ {
			d := e.Estimate(store.QuestionMetrics{TimesAnswered: n, CorrectCount: c}, question.BandMedium)
			assert.LessOrEqual(t, d, prev, "n=%d c=%d: more correct answers must not look harder", n, c)
			assert.GreaterOrEqual(t, d, -3.0)
			assert.LessOrEqual(t, d, 3.0)
			prev = d
		}
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	e := New(10)
	m := store.QuestionMetrics{TimesAnswered: 23, CorrectCount: 17}
	assert.Equal(t, e.Estimate(m, question.BandHard), e.Estimate(m, question.BandHard))
}

func TestDiscrimination(t *testing.T) {
	e := New(10)

	sparse := store.QuestionMetrics{LowAnswered: 2, LowCorrect: 0, HighAnswered: 10, HighCorrect: 10}
	assert.Equal(t, DefaultDiscrimination, e.Discrimination(sparse))

	sharp := store.QuestionMetrics{LowAnswered: 20, LowCorrect: 4, HighAnswered: 20, HighCorrect: 16}
	assert.InDelta(t, math.Log(4), e.Discrimination(sharp), 1e-9)

	inverted := store.QuestionMetrics{LowAnswered: 10, LowCorrect: 9, HighAnswered: 10, HighCorrect: 1}
	assert.Equal(t, 0.0, e.Discrimination(inverted))

	extreme := store.QuestionMetrics{LowAnswered: 100, LowCorrect: 0, HighAnswered: 100, HighCorrect: 100}
	assert.Equal(t, 3.0, e.Discrimination(extreme))
}

func TestDerive(t *testing.T) {
	e := New(10)
	m := &store.QuestionMetrics{TimesAnswered: 20, CorrectCount: 15}
	e.Derive(m, question.BandEasy)
	assert.InDelta(t, -math.Log(3), m.DifficultyEstimate, 1e-9)
	assert.Equal(t, DefaultDiscrimination, m.DiscriminationEstimate)
}

func TestCache(t *testing.T) {
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	key := question.Key{ExamType: "GRE", Topic: "algebra"}
	require.NoError(t, s.MetricsRepo().Save(ctx, &store.QuestionMetrics{
		QuestionID: "q1", ExamType: key.ExamType, Topic: key.Topic, DifficultyEstimate: 1.7,
	}))

	c := NewCache()
	require.NoError(t, c.Warm(ctx, s.MetricsRepo(), key))
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 1.7, c.Of(&question.Question{ID: "q1", Band: question.BandEasy}))
	assert.Equal(t, -1.0, c.Of(&question.Question{ID: "q2", Band: question.BandEasy}))

	c.Put(store.QuestionMetrics{QuestionID: "q2", DifficultyEstimate: 0.3})
	d, ok := c.Get("q2")
	assert.True(t, ok)
	assert.Equal(t, 0.3, d)
}
