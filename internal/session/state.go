package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/prepforge/internal/question"
)

// DefaultRecentWindow is the size of the anti-repetition ring.
const DefaultRecentWindow = 20

// Pending is a question that has been served and not yet answered.
type Pending struct {
	Question *question.Question
	ServedAt time.Time
}

// TopicResult tracks per-topic performance within a single session.
type TopicResult struct {
	Topic     string
	Attempted int
	Correct   int
}

// State is the ephemeral state of one practice session. It is safe for
// concurrent use, though a client normally drives it serially.
type State struct {
	// ID is the UUID for this session.
	ID string

	UserID   string
	ExamType string

	// StartTime is when the session began.
	StartTime time.Time

	mu sync.Mutex

	// recent holds the last N served question IDs.
	recent *Ring

	// pending maps served question IDs to what was served.
	pending map[string]Pending

	totalQuestions int
	totalCorrect   int
	perTopic       map[string]*TopicResult
	topicOrder     []string
}

// New creates a session with an anti-repetition window of recentWindow.
func New(userID, examType string, recentWindow int) *State {
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	return &State{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExamType:  examType,
		StartTime: time.Now(),
		recent:    NewRing(recentWindow),
		pending:   make(map[string]Pending),
		perTopic:  make(map[string]*TopicResult),
	}
}

// MarkServed records that q was handed to the learner.
func (s *State) MarkServed(q *question.Question, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent.Push(q.ID)
	s.pending[q.ID] = Pending{Question: q, ServedAt: at}
}

// RecentlyServed reports whether id is inside the anti-repetition window.
func (s *State) RecentlyServed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.Contains(id)
}

// Recent returns the IDs in the window, oldest first.
func (s *State) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.Items()
}

// TakePending removes and returns the pending entry for id.
func (s *State) TakePending(id string) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return p, ok
}

// RecordAnswer updates running accuracy.
func (s *State) RecordAnswer(topic string, correct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalQuestions++
	if correct {
		s.totalCorrect++
	}

	tr, ok := s.perTopic[topic]
	if !ok {
		tr = &TopicResult{Topic: topic}
		s.perTopic[topic] = tr
		s.topicOrder = append(s.topicOrder, topic)
	}
	tr.Attempted++
	if correct {
		tr.Correct++
	}
}

// Accuracy returns the session-local running accuracy, 0 before any answer.
func (s *State) Accuracy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalQuestions == 0 {
		return 0
	}
	return float64(s.totalCorrect) / float64(s.totalQuestions)
}
