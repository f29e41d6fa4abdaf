package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepforge/internal/question"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

var algebra = question.Key{ExamType: "GRE", Topic: "algebra"}

func testQuestion(id string, tier question.Tier) *question.Question {
	return &question.Question{
		ID:           id,
		ExamType:     algebra.ExamType,
		Topic:        algebra.Topic,
		Prompt:       "If 2x + 3 = 11, what is x?",
		Choices:      []string{"2", "3", "4", "5"},
		CorrectIndex: 2,
		Explanation:  "2x = 8 so x = 4.",
		Band:         question.BandMedium,
		Tier:         tier,
	}
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	require.NotNil(t, s.DB())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is not checked here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		require.NoError(t, s.DB().QueryRow("PRAGMA "+tt.pragma).Scan(&got))
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestSequenceCounter_Monotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var prev int64
	for range 5 {
		n, err := s.seq.Next(ctx)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestMetricsRepo_InsertLoadUpdate(t *testing.T) {
	s := openTestStore(t)
	repo := s.MetricsRepo()
	ctx := context.Background()

	got, err := repo.Load(ctx, "q1")
	require.NoError(t, err)
	assert.Nil(t, got, "absent metrics should load as nil")

	m := &QuestionMetrics{
		QuestionID:             "q1",
		ExamType:               algebra.ExamType,
		Topic:                  algebra.Topic,
		TimesAnswered:          1,
		CorrectCount:           1,
		DifficultyEstimate:     -0.5,
		DiscriminationEstimate: 1,
	}
	require.NoError(t, repo.Save(ctx, m))
	assert.Equal(t, int64(1), m.Version)

	got, err = repo.Load(ctx, "q1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.TimesAnswered)
	assert.Equal(t, -0.5, got.DifficultyEstimate)
	assert.False(t, got.LastUpdated.IsZero())

	got.TimesAnswered = 2
	require.NoError(t, repo.Save(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	list, err := repo.ListByKey(ctx, algebra)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].TimesAnswered)
}

func TestMetricsRepo_VersionConflict(t *testing.T) {
	s := openTestStore(t)
	repo := s.MetricsRepo()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &QuestionMetrics{QuestionID: "q1", ExamType: "GRE", Topic: "algebra"}))

	// A second insert of the same id loses.
	err := repo.Save(ctx, &QuestionMetrics{QuestionID: "q1", ExamType: "GRE", Topic: "algebra"})
	assert.ErrorIs(t, err, ErrVersionConflict)

	a, err := repo.Load(ctx, "q1")
	require.NoError(t, err)
	b, err := repo.Load(ctx, "q1")
	require.NoError(t, err)

	a.TimesAnswered = 1
	require.NoError(t, repo.Save(ctx, a))

	b.TimesAnswered = 1
	assert.ErrorIs(t, repo.Save(ctx, b), ErrVersionConflict)
}

func TestResponseRepo_RecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	repo := s.ResponseRepo()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Append(ctx, ResponseRecord{
			UserID:     "u1",
			ExamType:   algebra.ExamType,
			Topic:      algebra.Topic,
			QuestionID: "q" + string(rune('a'+i)),
			Correct:    i%2 == 0,
		})
		require.NoError(t, err)
	}
	// Other user and other topic are excluded.
	_, err := repo.Append(ctx, ResponseRecord{UserID: "u2", ExamType: "GRE", Topic: "algebra", QuestionID: "x"})
	require.NoError(t, err)
	_, err = repo.Append(ctx, ResponseRecord{UserID: "u1", ExamType: "GRE", Topic: "geometry", QuestionID: "y"})
	require.NoError(t, err)

	recent, err := repo.Recent(ctx, "u1", algebra, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "qe", recent[0].QuestionID)
	assert.Equal(t, "qd", recent[1].QuestionID)
	assert.Equal(t, "qc", recent[2].QuestionID)
	assert.True(t, recent[0].Correct)
	assert.False(t, recent[1].Correct)

	hist, err := repo.History(ctx, "u1", "GRE")
	require.NoError(t, err)
	require.Len(t, hist, 6)
	assert.Equal(t, "qa", hist[0].QuestionID)
	assert.Equal(t, "y", hist[5].QuestionID)
}

func TestResponseRepo_ConcurrentAppend(t *testing.T) {
	s := openTestStore(t)
	repo := s.ResponseRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Append(ctx, ResponseRecord{UserID: "u1", ExamType: "GRE", Topic: "algebra", QuestionID: "q"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recent, err := repo.Recent(ctx, "u1", algebra, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 20)
}

func TestPoolRepo_InsertListRetire(t *testing.T) {
	s := openTestStore(t)
	repo := s.PoolRepo()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, testQuestion("a1", question.TierAuthored)))
	require.NoError(t, repo.Insert(ctx, testQuestion("a2", question.TierAuthored)))
	require.NoError(t, repo.Insert(ctx, testQuestion("c1", question.TierCached)))
	// Duplicate insert is a no-op.
	require.NoError(t, repo.Insert(ctx, testQuestion("a1", question.TierAuthored)))

	n, err := repo.Count(ctx, algebra, question.TierAuthored)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := repo.List(ctx, algebra, question.TierCached)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"2", "3", "4", "5"}, list[0].Choices)
	assert.Equal(t, question.TierCached, list[0].Tier)
	assert.Equal(t, question.BandMedium, list[0].Band)

	require.NoError(t, repo.Retire(ctx, "a1"))
	n, err = repo.Count(ctx, algebra, question.TierAuthored)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Retired questions still resolve by id.
	q, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "4", q.CorrectAnswer())

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []question.Key{algebra}, keys)
}

func TestEventRepo_LLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "m1", Purpose: "question-gen",
		InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true,
	}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "m1", Purpose: "question-gen",
		InputTokens: 10, OutputTokens: 5, LatencyMs: 100, ErrorMessage: "boom",
	}))

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "boom", events[0].ErrorMessage)
	assert.False(t, events[0].Success)
	assert.WithinDuration(t, time.Now(), events[0].Timestamp, time.Minute)

	e, err := repo.GetLLMEvent(ctx, events[1].ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.Success)

	usage, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 2, usage[0].Calls)
	assert.Equal(t, 110, usage[0].InputTokens)
	assert.Equal(t, int64(150), usage[0].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 1)
	assert.Equal(t, "m1", byModel[0].Model)
}
