// Package engine exposes the two calls the session layer makes:
// GetNextQuestion and SubmitAnswer. Everything behind them (estimation,
// selection, tier fallback, metrics) degrades internally; only a denied
// quota, an unknown question or unreachable persistence reaches the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/prepforge/internal/ability"
	"github.com/abhisek/prepforge/internal/difficulty"
	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/metrics"
	"github.com/abhisek/prepforge/internal/pipeline"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/session"
	"github.com/abhisek/prepforge/internal/store"
	"github.com/abhisek/prepforge/internal/worker"
)

var (
	// ErrQuotaDenied is returned when the caller's quota check failed.
	ErrQuotaDenied = errors.New("engine: quota denied")

	// ErrUnknownQuestion is returned for an answer to a question that was
	// never served.
	ErrUnknownQuestion = errors.New("engine: unknown question")

	// ErrPersistenceUnavailable wraps storage failures the engine cannot
	// absorb.
	ErrPersistenceUnavailable = errors.New("engine: persistence unavailable")
)

// Lookup finds questions that are not pending in the session, such as an
// answer submitted after a restart.
type Lookup interface {
	Get(id string) (*question.Question, bool)
}

// Deps are the engine's collaborators. Metrics, Workers and Emergency may
// be nil.
type Deps struct {
	Pipeline   *pipeline.Pipeline
	Abilities  *ability.Service
	Difficulty *difficulty.Cache
	Metrics    *metrics.Store
	Responses  store.ResponseRepo
	Pool       store.PoolRepo
	Emergency  Lookup
	Workers    *worker.Pool
	Log        *logger.Logger
}

type Engine struct {
	pipe      *pipeline.Pipeline
	abilities *ability.Service
	diffs     *difficulty.Cache
	metrics   *metrics.Store
	responses store.ResponseRepo
	pool      store.PoolRepo
	emerg     Lookup
	workers   *worker.Pool
	log       *logger.Logger

	now func() time.Time
}

func New(deps Deps) *Engine {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	diffs := deps.Difficulty
	if diffs == nil {
		diffs = difficulty.NewCache()
	}
	if deps.Metrics != nil && deps.Metrics.OnWrite == nil {
		deps.Metrics.OnWrite = diffs.Put
	}
	return &Engine{
		pipe:      deps.Pipeline,
		abilities: deps.Abilities,
		diffs:     diffs,
		metrics:   deps.Metrics,
		responses: deps.Responses,
		pool:      deps.Pool,
		emerg:     deps.Emergency,
		workers:   deps.Workers,
		log:       log.Named("engine"),
		now:       time.Now,
	}
}

// NextRequest asks for the next question in a session.
type NextRequest struct {
	Topic string

	// Band optionally narrows the first selection pass.
	Band question.Band

	// Allowed is the caller's quota decision.
	Allowed bool
}

// Served is a question handed to the learner.
type Served struct {
	Question   *question.Question
	Tier       question.Tier
	State      pipeline.State
	Difficulty float64
	Target     float64
}

// GetNextQuestion returns a question for the session's exam and req.Topic.
// It fails only on a denied quota or a cancelled ctx.
func (e *Engine) GetNextQuestion(ctx context.Context, sess *session.State, req NextRequest) (Served, error) {
	if !req.Allowed {
		return Served{}, ErrQuotaDenied
	}
	key := question.Key{ExamType: sess.ExamType, Topic: req.Topic}
	res, err := e.pipe.Serve(ctx, pipeline.Request{
		UserID: sess.UserID,
		Key:    key,
		Band:   req.Band,
		Recent: sess.RecentlyServed,
	})
	if err != nil {
		return Served{}, fmt.Errorf("next question for %s: %w", key, err)
	}
	sess.MarkServed(res.Question, e.now())
	e.log.Debug("question served", "user_id", sess.UserID, "question_id", res.Question.ID,
		"tier", res.Tier.String(), "difficulty", res.Difficulty, "target", res.Target)
	return Served{
		Question:   res.Question,
		Tier:       res.Tier,
		State:      res.State,
		Difficulty: res.Difficulty,
		Target:     res.Target,
	}, nil
}

// Answer is a learner's submission.
type Answer struct {
	QuestionID string

	// Choice is a letter, a choice's text or a one-based option number.
	Choice string

	// ResponseTime is zero when unknown.
	ResponseTime time.Duration
	Confidence   int
	HintsUsed    int
}

// Feedback tells the learner how they did.
type Feedback struct {
	Correct       bool
	CorrectIndex  int
	CorrectAnswer string
	Explanation   string
}

// SubmitAnswer grades a, appends the response record and schedules the
// metrics update. If the record cannot be stored, the feedback is still
// returned together with an error wrapping ErrPersistenceUnavailable.
func (e *Engine) SubmitAnswer(ctx context.Context, sess *session.State, a Answer) (Feedback, error) {
	q, servedAt, err := e.resolve(ctx, sess, a.QuestionID)
	if err != nil {
		return Feedback{}, err
	}

	correct := q.Check(a.Choice)
	fb := Feedback{
		Correct:       correct,
		CorrectIndex:  q.CorrectIndex,
		CorrectAnswer: q.CorrectAnswer(),
		Explanation:   q.Explanation,
	}
	sess.RecordAnswer(q.Topic, correct)

	now := e.now()
	rt := a.ResponseTime
	if rt <= 0 && !servedAt.IsZero() {
		rt = now.Sub(servedAt)
	}
	key := question.Key{ExamType: q.ExamType, Topic: q.Topic}

	// The bucket compares the learner with the question before this
	// answer moves either estimate.
	bucket := e.bucket(ctx, sess.UserID, key, q)

	rec := store.ResponseRecord{
		UserID:       sess.UserID,
		SessionID:    sess.ID,
		ExamType:     q.ExamType,
		Topic:        q.Topic,
		QuestionID:   q.ID,
		Correct:      correct,
		ResponseTime: rt.Seconds(),
		Confidence:   a.Confidence,
		HintsUsed:    a.HintsUsed,
		Timestamp:    now.UTC(),
	}
	if _, err := e.responses.Append(ctx, rec); err != nil {
		e.log.Error("response record not stored", "user_id", sess.UserID, "question_id", q.ID, "error", err)
		return fb, fmt.Errorf("%w: append response: %v", ErrPersistenceUnavailable, err)
	}
	if e.abilities != nil {
		e.abilities.Invalidate(ctx, sess.UserID, key)
	}

	e.recordMetrics(metrics.Response{
		QuestionID:   q.ID,
		ExamType:     q.ExamType,
		Topic:        q.Topic,
		Band:         q.Band,
		Correct:      correct,
		ResponseTime: rec.ResponseTime,
		Bucket:       bucket,
	})
	return fb, nil
}

// resolve finds the answered question: pending in the session first, then
// storage, then the emergency set.
func (e *Engine) resolve(ctx context.Context, sess *session.State, id string) (*question.Question, time.Time, error) {
	if p, ok := sess.TakePending(id); ok {
		return p.Question, p.ServedAt, nil
	}
	if e.pool != nil {
		q, err := e.pool.Get(ctx, id)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: look up question %s: %v", ErrPersistenceUnavailable, id, err)
		}
		if q != nil {
			return q, time.Time{}, nil
		}
	}
	if e.emerg != nil {
		if q, ok := e.emerg.Get(id); ok {
			return q, time.Time{}, nil
		}
	}
	return nil, time.Time{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
}

func (e *Engine) bucket(ctx context.Context, userID string, key question.Key, q *question.Question) metrics.Bucket {
	if e.abilities == nil {
		return metrics.BucketUnknown
	}
	// Below the history floor the ability is the cold-start 0, not a
	// measurement.
	est, err := e.abilities.Ability(ctx, userID, key)
	if err != nil || est.SampleSize < e.abilities.Estimator().Params().MinHistory {
		return metrics.BucketUnknown
	}
	if est.Ability < e.diffs.Of(q) {
		return metrics.BucketLow
	}
	return metrics.BucketHigh
}

// recordMetrics hands the update to the worker pool. A full queue drops
// it: metrics are best-effort and must not delay the response.
func (e *Engine) recordMetrics(r metrics.Response) {
	if e.metrics == nil {
		return
	}
	job := worker.Func{
		JobName: "metrics:" + r.QuestionID,
		Fn: func(ctx context.Context) error {
			if _, err := e.metrics.Record(ctx, r); err != nil {
				e.log.Error("metrics update dropped", "question_id", r.QuestionID, "error", err)
				return err
			}
			return nil
		},
	}
	if e.workers == nil {
		_ = job.Run(context.Background())
		return
	}
	if err := e.workers.Submit(job); err != nil {
		e.log.Warn("metrics update not queued", "question_id", r.QuestionID, "error", err)
	}
}

// Ability returns the learner's current estimate for key.
func (e *Engine) Ability(ctx context.Context, userID string, key question.Key) (ability.Estimate, error) {
	return e.abilities.Ability(ctx, userID, key)
}

// Readiness reports how prepared the learner is for an exam.
func (e *Engine) Readiness(ctx context.Context, userID, examType string) (ability.Readiness, error) {
	return e.abilities.Estimator().Readiness(ctx, userID, examType)
}

// WeakTopics lists the learner's weakest recent topics.
func (e *Engine) WeakTopics(ctx context.Context, userID, examType string) ([]ability.TopicAccuracy, error) {
	return e.abilities.Estimator().WeakTopics(ctx, userID, examType)
}

// Status reports inventory health.
func (e *Engine) Status() pipeline.Status {
	return e.pipe.Status()
}
