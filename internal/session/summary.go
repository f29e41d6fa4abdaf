package session

import "time"

// Summary is the end-of-session report.
type Summary struct {
	SessionID      string
	Duration       time.Duration
	TotalQuestions int
	TotalCorrect   int
	Accuracy       float64
	Topics         []TopicResult // in first-answered order
}

// Summary builds a report from the current state.
func (s *State) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]TopicResult, 0, len(s.topicOrder))
	for _, t := range s.topicOrder {
		topics = append(topics, *s.perTopic[t])
	}

	var accuracy float64
	if s.totalQuestions > 0 {
		accuracy = float64(s.totalCorrect) / float64(s.totalQuestions)
	}

	return Summary{
		SessionID:      s.ID,
		Duration:       time.Since(s.StartTime),
		TotalQuestions: s.totalQuestions,
		TotalCorrect:   s.totalCorrect,
		Accuracy:       accuracy,
		Topics:         topics,
	}
}
