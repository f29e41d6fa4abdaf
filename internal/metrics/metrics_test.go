package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

func openRepo(t *testing.T) store.MetricsRepo {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.MetricsRepo()
}

func resp(correct bool, secs float64) Response {
	return Response{
		QuestionID:   "q1",
		ExamType:     "GRE",
		Topic:        "algebra",
		Band:         question.BandHard,
		Correct:      correct,
		ResponseTime: secs,
	}
}

func TestRecord_CreatesLazily(t *testing.T) {
	s := New(openRepo(t), nil, time.Second, nil)
	ctx := context.Background()

	m, err := s.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Zero(t, m.TimesAnswered)
	assert.Equal(t, 1.0, m.DiscriminationEstimate)

	got, err := s.Record(ctx, resp(true, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, got.TimesAnswered)
	assert.Equal(t, 1, got.CorrectCount)
	assert.Equal(t, 30.0, got.MeanResponseTime)
	// Seeded from the band until enough samples exist.
	assert.Equal(t, question.BandHard.DefaultDifficulty(), got.DifficultyEstimate)
}

func TestRecord_ConcurrentWritersKeepInvariant(t *testing.T) {
	s := New(openRepo(t), nil, 5*time.Second, nil)
	ctx := context.Background()

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Record(ctx, resp(i%3 == 0, float64(10+i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	m, err := s.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, writers, m.TimesAnswered)
	assert.Equal(t, 14, m.CorrectCount) // 0,3,...,39
	assert.LessOrEqual(t, m.CorrectCount, m.TimesAnswered)
	assert.InDelta(t, 29.5, m.MeanResponseTime, 1e-9)
}

func TestApply_OrderIndependent(t *testing.T) {
	rs := []Response{resp(true, 12), resp(false, 40), resp(true, 7), resp(false, 0), resp(true, 25)}

	var forward, backward store.QuestionMetrics
	for _, r := range rs {
		Apply(&forward, r)
	}
	for i := len(rs) - 1; i >= 0; i-- {
		Apply(&backward, rs[i])
	}

	assert.Equal(t, forward.TimesAnswered, backward.TimesAnswered)
	assert.Equal(t, forward.CorrectCount, backward.CorrectCount)
	assert.Equal(t, 4, forward.TimedResponses, "zero response time is not a sample")
	assert.InDelta(t, forward.MeanResponseTime, backward.MeanResponseTime, 1e-9)
	assert.InDelta(t, forward.ResponseTimeM2, backward.ResponseTimeM2, 1e-6)
	assert.InDelta(t, 21.0, forward.MeanResponseTime, 1e-9)
}

func TestApply_Buckets(t *testing.T) {
	var m store.QuestionMetrics
	low := resp(false, 0)
	low.Bucket = BucketLow
	high := resp(true, 0)
	high.Bucket = BucketHigh

	Apply(&m, low)
	Apply(&m, high)
	Apply(&m, high)

	assert.Equal(t, 1, m.LowAnswered)
	assert.Equal(t, 0, m.LowCorrect)
	assert.Equal(t, 2, m.HighAnswered)
	assert.Equal(t, 2, m.HighCorrect)
}

func TestResponseTimeStdDev(t *testing.T) {
	var m store.QuestionMetrics
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		Apply(&m, resp(true, x))
	}
	assert.InDelta(t, 5.0, m.MeanResponseTime, 1e-9)
	assert.InDelta(t, 2.138, ResponseTimeStdDev(m), 1e-3)
	assert.InDelta(t, 1.0, Accuracy(m), 1e-9)
}

// conflictRepo loses the first n saves.
type conflictRepo struct {
	store.MetricsRepo
	conflicts int
	failLoad  error
}

func (r *conflictRepo) Load(ctx context.Context, id string) (*store.QuestionMetrics, error) {
	if r.failLoad != nil {
		return nil, r.failLoad
	}
	return r.MetricsRepo.Load(ctx, id)
}

func (r *conflictRepo) Save(ctx context.Context, m *store.QuestionMetrics) error {
	if r.conflicts > 0 {
		r.conflicts--
		return store.ErrVersionConflict
	}
	return r.MetricsRepo.Save(ctx, m)
}

func TestRecord_RetriesVersionConflict(t *testing.T) {
	repo := &conflictRepo{MetricsRepo: openRepo(t), conflicts: 2}
	s := New(repo, nil, time.Second, nil)

	var written []store.QuestionMetrics
	s.OnWrite = func(m store.QuestionMetrics) { written = append(written, m) }

	m, err := s.Record(context.Background(), resp(true, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, m.TimesAnswered, "lost attempts must not double count")
	assert.Len(t, written, 1)
}

func TestRecord_GivesUpAsWriteError(t *testing.T) {
	repo := &conflictRepo{MetricsRepo: openRepo(t), conflicts: maxAttempts}
	s := New(repo, nil, time.Second, nil)

	_, err := s.Record(context.Background(), resp(true, 5))
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "q1", we.QuestionID)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestRecord_StorageFailure(t *testing.T) {
	boom := errors.New("disk gone")
	s := New(&conflictRepo{MetricsRepo: openRepo(t), failLoad: boom}, nil, time.Second, nil)

	_, err := s.Record(context.Background(), resp(false, 1))
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.ErrorIs(t, err, boom)
}

type fixedDeriver struct{ d float64 }

func (f fixedDeriver) Derive(m *store.QuestionMetrics, _ question.Band) { m.DifficultyEstimate = f.d }

func TestRecord_RunsDeriver(t *testing.T) {
	s := New(openRepo(t), fixedDeriver{d: 1.25}, time.Second, nil)
	m, err := s.Record(context.Background(), resp(true, 3))
	require.NoError(t, err)
	assert.Equal(t, 1.25, m.DifficultyEstimate)
}
