// Package metrics maintains per-question aggregate response statistics.
//
// Updates are commutative: each response adds one to the answer count, adds
// its correctness to the correct count and folds its response time into a
// Welford running mean. Concurrent writers for the same question serialize
// on an in-process stripe lock and, across processes, on the row version.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/abhisek/prepforge/internal/logger"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

const (
	stripes     = 64
	maxAttempts = 5
)

// Bucket places a response relative to the question's difficulty at answer
// time, feeding the discrimination estimate.
type Bucket int

const (
	BucketUnknown Bucket = iota
	BucketLow            // responder ability below question difficulty
	BucketHigh           // responder ability at or above question difficulty
)

// Response is one answer to fold into a question's aggregate.
type Response struct {
	QuestionID   string
	ExamType     string
	Topic        string
	Band         question.Band
	Correct      bool
	ResponseTime float64 // seconds, <= 0 when unknown
	Bucket       Bucket
}

// Deriver recomputes derived fields (difficulty, discrimination) after the
// raw counters change.
type Deriver interface {
	Derive(m *store.QuestionMetrics, band question.Band)
}

// WriteError reports a metrics update that could not be persisted.
type WriteError struct {
	QuestionID string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("metrics write for %s failed: %v", e.QuestionID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store is the Metrics Store.
type Store struct {
	repo    store.MetricsRepo
	derive  Deriver
	timeout time.Duration
	log     *logger.Logger
	locks   [stripes]sync.Mutex

	// OnWrite, if set, is called with every successfully persisted row.
	OnWrite func(m store.QuestionMetrics)
}

// New creates a Metrics Store. derive may be nil.
func New(repo store.MetricsRepo, derive Deriver, timeout time.Duration, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{repo: repo, derive: derive, timeout: timeout, log: log.Named("metrics")}
}

// Record folds r into the question's aggregate and returns the new row.
// Failures are returned as *WriteError; callers treat them as best-effort.
func (s *Store) Record(ctx context.Context, r Response) (*store.QuestionMetrics, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	mu := s.lockFor(r.QuestionID)
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		m, err := s.repo.Load(ctx, r.QuestionID)
		if err != nil {
			return nil, &WriteError{QuestionID: r.QuestionID, Err: err}
		}
		if m == nil {
			m = &store.QuestionMetrics{
				QuestionID:             r.QuestionID,
				ExamType:               r.ExamType,
				Topic:                  r.Topic,
				DifficultyEstimate:     r.Band.DefaultDifficulty(),
				DiscriminationEstimate: 1,
			}
		}

		Apply(m, r)
		if s.derive != nil {
			s.derive.Derive(m, r.Band)
		}
		m.LastUpdated = time.Now().UTC()

		err = s.repo.Save(ctx, m)
		if err == nil {
			if s.OnWrite != nil {
				s.OnWrite(*m)
			}
			return m, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, &WriteError{QuestionID: r.QuestionID, Err: err}
		}
		lastErr = err
		s.log.Debug("metrics version conflict, retrying", "question_id", r.QuestionID, "attempt", attempt+1)
	}
	return nil, &WriteError{QuestionID: r.QuestionID, Err: lastErr}
}

// Get returns the question's metrics. A question that has never been
// answered yields a zero row carrying the default discrimination.
func (s *Store) Get(ctx context.Context, questionID string) (store.QuestionMetrics, error) {
	m, err := s.repo.Load(ctx, questionID)
	if err != nil {
		return store.QuestionMetrics{}, fmt.Errorf("get metrics: %w", err)
	}
	if m == nil {
		return store.QuestionMetrics{QuestionID: questionID, DiscriminationEstimate: 1}, nil
	}
	return *m, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%stripes]
}

// Apply folds one response into m's raw counters.
func Apply(m *store.QuestionMetrics, r Response) {
	m.TimesAnswered++
	if r.Correct {
		m.CorrectCount++
	}

	if r.ResponseTime > 0 && !math.IsInf(r.ResponseTime, 0) {
		m.TimedResponses++
		delta := r.ResponseTime - m.MeanResponseTime
		m.MeanResponseTime += delta / float64(m.TimedResponses)
		m.ResponseTimeM2 += delta * (r.ResponseTime - m.MeanResponseTime)
	}

	switch r.Bucket {
	case BucketLow:
		m.LowAnswered++
		if r.Correct {
			m.LowCorrect++
		}
	case BucketHigh:
		m.HighAnswered++
		if r.Correct {
			m.HighCorrect++
		}
	}
}

// Accuracy returns correct/answered, or 0 for an unanswered question.
func Accuracy(m store.QuestionMetrics) float64 {
	if m.TimesAnswered == 0 {
		return 0
	}
	return float64(m.CorrectCount) / float64(m.TimesAnswered)
}

// ResponseTimeStdDev returns the sample standard deviation of response time.
func ResponseTimeStdDev(m store.QuestionMetrics) float64 {
	if m.TimedResponses < 2 {
		return 0
	}
	return math.Sqrt(m.ResponseTimeM2 / float64(m.TimedResponses-1))
}
