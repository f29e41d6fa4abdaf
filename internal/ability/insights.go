package ability

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

const (
	readinessWindow     = 7 * 24 * time.Hour
	readinessMinAnswers = 10
	weakTopicWindow     = 14 * 24 * time.Hour
	weakTopicMinAnswers = 3
	weakTopicThreshold  = 0.7
	weakTopicLimit      = 5
)

// Readiness summarizes how prepared a learner looks for an exam.
type Readiness struct {
	Score           int     // 0-100
	Confidence      string  // low, medium, high
	Recommendation  string
	Ability         float64
	Accuracy        float64
	AvgResponseTime float64
	Answered        int
}

// TopicAccuracy is a learner's recent accuracy on one topic.
type TopicAccuracy struct {
	Topic    string
	Accuracy float64
	Answered int
}

// Readiness scores exam readiness from the last week of answers across all
// topics. Fewer than ten answers yields a zero score with low confidence.
func (e *Estimator) Readiness(ctx context.Context, userID, examType string) (Readiness, error) {
	recent, err := e.since(ctx, userID, examType, readinessWindow)
	if err != nil {
		return Readiness{}, err
	}
	if len(recent) < readinessMinAnswers {
		return Readiness{
			Confidence:     "low",
			Recommendation: "Practice more questions to get a reliable assessment.",
			Answered:       len(recent),
		}, nil
	}

	var correct int
	var totalTime float64
	for _, r := range recent {
		if r.Correct {
			correct++
		}
		totalTime += r.ResponseTime
	}

	// Compute expects newest first.
	newest := make([]store.ResponseRecord, len(recent))
	for i, r := range recent {
		newest[len(recent)-1-i] = r
	}
	ab := Compute(newest, e.params)

	score := math.Max(0, math.Min(100, (ab+3)*100/6))
	out := Readiness{
		Score:           int(score),
		Ability:         ab,
		Accuracy:        float64(correct) / float64(len(recent)),
		AvgResponseTime: totalTime / float64(len(recent)),
		Answered:        len(recent),
	}
	switch {
	case score >= 80:
		out.Confidence = "high"
		out.Recommendation = "You appear ready for the exam. Focus on review and time management."
	case score >= 60:
		out.Confidence = "medium"
		out.Recommendation = "Good progress. Focus on weak topics and practice timing."
	default:
		out.Confidence = "low"
		out.Recommendation = "More practice needed. Focus on fundamentals and building consistency."
	}
	return out, nil
}

// WeakTopics returns up to five topics answered at least three times in the
// last two weeks with accuracy below 70%, weakest first.
func (e *Estimator) WeakTopics(ctx context.Context, userID, examType string) ([]TopicAccuracy, error) {
	recent, err := e.since(ctx, userID, examType, weakTopicWindow)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]*TopicAccuracy)
	for _, r := range recent {
		ta, ok := stats[r.Topic]
		if !ok {
			ta = &TopicAccuracy{Topic: r.Topic}
			stats[r.Topic] = ta
		}
		ta.Answered++
		if r.Correct {
			ta.Accuracy++
		}
	}

	var weak []TopicAccuracy
	for _, ta := range stats {
		if ta.Answered < weakTopicMinAnswers {
			continue
		}
		ta.Accuracy /= float64(ta.Answered)
		if ta.Accuracy < weakTopicThreshold {
			weak = append(weak, *ta)
		}
	}
	sort.Slice(weak, func(i, j int) bool {
		if weak[i].Accuracy != weak[j].Accuracy {
			return weak[i].Accuracy < weak[j].Accuracy
		}
		return weak[i].Topic < weak[j].Topic
	})
	if len(weak) > weakTopicLimit {
		weak = weak[:weakTopicLimit]
	}
	return weak, nil
}

// Progression recommends a three-question band mix for an ability.
func Progression(ability float64) []question.Band {
	e, m, h, x := question.BandEasy, question.BandMedium, question.BandHard, question.BandExpert
	switch {
	case ability < -1.5:
		return []question.Band{e, e, m}
	case ability < -0.5:
		return []question.Band{e, m, m}
	case ability < 0.5:
		return []question.Band{m, m, h}
	case ability < 1.5:
		return []question.Band{m, h, h}
	default:
		return []question.Band{h, h, x}
	}
}

// since returns the user's records for the exam within window, oldest first.
func (e *Estimator) since(ctx context.Context, userID, examType string, window time.Duration) ([]store.ResponseRecord, error) {
	hist, err := e.responses.History(ctx, userID, examType)
	if err != nil {
		return nil, fmt.Errorf("load response history: %w", err)
	}
	cutoff := e.now().Add(-window)
	out := hist[:0]
	for _, r := range hist {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}
