package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepforge/internal/config"
	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/pipeline"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/scale"
	"github.com/abhisek/prepforge/internal/session"
	"github.com/abhisek/prepforge/internal/store"
)

var algebra = question.Key{ExamType: "GRE", Topic: "algebra"}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.OnDemandTimeout = 50 * time.Millisecond
	cfg.GenBackoff = time.Millisecond
	cfg.GenBudget = 200 * time.Millisecond
	cfg.MonitorInterval = time.Hour
	return cfg
}

func open(t *testing.T, cfg config.Config, provider llm.Provider) *Runtime {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rt, err := Open(context.Background(), cfg, st, provider, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(ctx)
	})
	return rt
}

func mkQuestion(id string, tier question.Tier, band question.Band) *question.Question {
	return &question.Question{
		ID:           id,
		ExamType:     algebra.ExamType,
		Topic:        algebra.Topic,
		Prompt:       "Solve for x: x + " + id + " = 10",
		Choices:      []string{"1", "2", "3", "4"},
		CorrectIndex: 2,
		Explanation:  "Subtract both sides.",
		Band:         band,
		Tier:         tier,
	}
}

func seed(t *testing.T, rt *Runtime, tier question.Tier, n int) []*question.Question {
	t.Helper()
	qs := make([]*question.Question, 0, n)
	for i := range n {
		band := question.Bands[i%len(question.Bands)]
		qs = append(qs, mkQuestion(fmt.Sprintf("%s-%02d", tier, i), tier, band))
	}
	require.NoError(t, rt.Pipeline.Add(context.Background(), qs...))
	return qs
}

func allowed() NextRequest { return NextRequest{Topic: algebra.Topic, Allowed: true} }

func TestGetNextQuestion_QuotaDenied(t *testing.T) {
	rt := open(t, testConfig(), nil)
	sess := session.New("u1", "GRE", 0)

	_, err := rt.GetNextQuestion(context.Background(), sess, NextRequest{Topic: "algebra"})
	assert.ErrorIs(t, err, ErrQuotaDenied)
	assert.Empty(t, sess.Recent())
}

func TestGetNextQuestion_ColdStartTarget(t *testing.T) {
	rt := open(t, testConfig(), nil)
	seed(t, rt, question.TierAuthored, 8)

	got, err := rt.GetNextQuestion(context.Background(), session.New("new-user", "GRE", 0), allowed())
	require.NoError(t, err)
	assert.InDelta(t, -scale.Logit(0.75), got.Target, 1e-9, "ability 0 for a learner with no history")
	assert.Equal(t, question.TierAuthored, got.Tier)
}

func TestGetNextQuestion_FallsBackToCachedTier(t *testing.T) {
	rt := open(t, testConfig(), nil)
	only := seed(t, rt, question.TierCached, 1)[0]

	assert.Equal(t, pipeline.StateHealthy, rt.Pipeline.State(algebra))
	got, err := rt.GetNextQuestion(context.Background(), session.New("u1", "GRE", 0), allowed())
	require.NoError(t, err)
	assert.Equal(t, only.ID, got.Question.ID)
	assert.Equal(t, question.TierCached, got.Tier)
	assert.Equal(t, pipeline.StateDegraded, got.State)
}

func TestGetNextQuestion_EmergencyWhenGenerationTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.GenRetries = 1
	m := llm.NewMockProvider()
	m.Fallback = func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	rt := open(t, cfg, llm.WithTimeout(m, 50*time.Millisecond))

	start := time.Now()
	got, err := rt.GetNextQuestion(context.Background(), session.New("u1", "GRE", 0), allowed())
	require.NoError(t, err)
	require.NotNil(t, got.Question)
	assert.Equal(t, question.TierEmergency, got.Tier)
	assert.Equal(t, pipeline.StateEmergency, got.State)
	assert.Less(t, time.Since(start), time.Second)

	// Background replenishment times out on both attempts and leaves the state alone.
	require.Eventually(t, func() bool { return m.CallCount() >= 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, pipeline.StateEmergency, rt.Pipeline.State(algebra))
}

func TestGetNextQuestion_NoRepeatsWithinWindow(t *testing.T) {
	rt := open(t, testConfig(), nil)
	seed(t, rt, question.TierAuthored, 30)
	sess := session.New("u1", "GRE", 20)

	seen := map[string]bool{}
	for range 20 {
		got, err := rt.GetNextQuestion(context.Background(), sess, allowed())
		require.NoError(t, err)
		require.Equal(t, question.TierAuthored, got.Tier)
		require.False(t, seen[got.Question.ID], "repeated %s", got.Question.ID)
		seen[got.Question.ID] = true
	}
}

func TestSubmitAnswer_RecordsAndUpdatesMetrics(t *testing.T) {
	rt := open(t, testConfig(), nil)
	seed(t, rt, question.TierAuthored, 6)
	sess := session.New("u1", "GRE", 0)
	ctx := context.Background()

	got, err := rt.GetNextQuestion(ctx, sess, allowed())
	require.NoError(t, err)
	id := got.Question.ID

	fb, err := rt.SubmitAnswer(ctx, sess, Answer{QuestionID: id, Choice: "c", ResponseTime: 12 * time.Second})
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	assert.Equal(t, "3", fb.CorrectAnswer)
	assert.Equal(t, 2, fb.CorrectIndex)
	assert.Equal(t, "Subtract both sides.", fb.Explanation)
	assert.Equal(t, 1.0, sess.Accuracy())

	recs, err := rt.Store.ResponseRepo().Recent(ctx, "u1", algebra, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, sess.ID, recs[0].SessionID)
	assert.Equal(t, 12.0, recs[0].ResponseTime)

	require.Eventually(t, func() bool {
		m, err := rt.metrics.Get(ctx, id)
		return err == nil && m.TimesAnswered == 1 && m.CorrectCount == 1
	}, 5*time.Second, 10*time.Millisecond)
	_, cached := rt.diffs.Get(id)
	assert.True(t, cached, "metrics writes refresh the difficulty cache")

	_, err = rt.SubmitAnswer(ctx, sess, Answer{QuestionID: id, Choice: "c"})
	require.NoError(t, err, "a stored question can be answered after its pending entry is gone")
}

func TestSubmitAnswer_AbilityTracksAnswers(t *testing.T) {
	rt := open(t, testConfig(), nil)
	seed(t, rt, question.TierAuthored, 30)
	sess := session.New("u1", "GRE", 0)
	ctx := context.Background()

	for range 8 {
		got, err := rt.GetNextQuestion(ctx, sess, allowed())
		require.NoError(t, err)
		_, err = rt.SubmitAnswer(ctx, sess, Answer{QuestionID: got.Question.ID, Choice: "A"})
		require.NoError(t, err)
	}

	est, err := rt.abilities.Ability(ctx, "u1", algebra)
	require.NoError(t, err)
	assert.Equal(t, 8, est.SampleSize)
	assert.Equal(t, scale.Min, est.Ability, "all wrong pins ability at the floor")
}

func TestSubmitAnswer_BucketsOnlyWithEnoughHistory(t *testing.T) {
	rt := open(t, testConfig(), nil)
	seed(t, rt, question.TierAuthored, 30)
	sess := session.New("u1", "GRE", 0)
	ctx := context.Background()
	minHistory := rt.abilities.Estimator().Params().MinHistory

	var ids []string
	for range minHistory + 1 {
		got, err := rt.GetNextQuestion(ctx, sess, allowed())
		require.NoError(t, err)
		_, err = rt.SubmitAnswer(ctx, sess, Answer{QuestionID: got.Question.ID, Choice: "c"})
		require.NoError(t, err)
		ids = append(ids, got.Question.ID)
	}

	for i, id := range ids {
		var m store.QuestionMetrics
		require.Eventually(t, func() bool {
			var err error
			m, err = rt.metrics.Get(ctx, id)
			return err == nil && m.TimesAnswered == 1
		}, 5*time.Second, 10*time.Millisecond)

		bucketed := m.LowAnswered + m.HighAnswered
		if i < minHistory {
			assert.Zero(t, bucketed, "answer %d has too little history to bucket", i+1)
		} else {
			assert.Equal(t, 1, bucketed, "answer %d is bucketed", i+1)
		}
	}
}

func TestSubmitAnswer_EmergencyLookup(t *testing.T) {
	rt := open(t, testConfig(), nil)
	sess := session.New("u1", "GMAT", 0)

	fb, err := rt.SubmitAnswer(context.Background(), sess, Answer{QuestionID: "em-gmat-001", Choice: "160"})
	require.NoError(t, err)
	assert.True(t, fb.Correct)
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	rt := open(t, testConfig(), nil)
	_, err := rt.SubmitAnswer(context.Background(), session.New("u1", "GRE", 0), Answer{QuestionID: "nope", Choice: "A"})
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

type failingResponses struct{ store.ResponseRepo }

func (failingResponses) Append(context.Context, store.ResponseRecord) (int64, error) {
	return 0, errors.New("disk full")
}

func TestSubmitAnswer_PersistenceFailureStillGrades(t *testing.T) {
	e := New(Deps{Responses: failingResponses{}})
	sess := session.New("u1", "GRE", 0)
	q := mkQuestion("q1", question.TierAuthored, question.BandEasy)
	sess.MarkServed(q, time.Now())

	fb, err := e.SubmitAnswer(context.Background(), sess, Answer{QuestionID: "q1", Choice: "3"})
	assert.ErrorIs(t, err, ErrPersistenceUnavailable)
	assert.True(t, fb.Correct)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TargetAccuracy = 1.5
	_, err := Open(context.Background(), cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestOpen_UnreachableRedisFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	rt := open(t, cfg, nil)
	assert.Nil(t, rt.redis)
}
