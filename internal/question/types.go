package question

import (
	"fmt"
	"time"
)

// Question is a multiple-choice practice item in its normalised form.
// Every source (authored bank, cached generation, on-demand generation,
// emergency templates) is converted into this shape once at ingestion.
type Question struct {
	// ID is unique across all tiers.
	ID string

	ExamType string
	Topic    string

	// Prompt is the question text shown to the learner.
	Prompt string

	// Choices are the answer options in display order (A, B, C, ...).
	Choices []string

	// CorrectIndex is the zero-based index into Choices of the correct option.
	CorrectIndex int

	// Explanation is shown after the learner answers.
	Explanation string

	// Band is the author-assigned or generator-requested difficulty band.
	// It seeds the difficulty estimate until enough responses exist.
	Band Band

	// Tier records provenance.
	Tier Tier

	CreatedAt time.Time
}

// CorrectAnswer returns the text of the correct option.
func (q *Question) CorrectAnswer() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return ""
	}
	return q.Choices[q.CorrectIndex]
}

// CorrectLetter returns the option letter of the correct choice ("A" for index 0).
func (q *Question) CorrectLetter() string {
	return Letter(q.CorrectIndex)
}

// Validate checks the structural invariants every stored question must hold.
func (q *Question) Validate() error {
	switch {
	case q.ID == "":
		return fmt.Errorf("question has no id")
	case q.ExamType == "":
		return fmt.Errorf("question %s: exam type is empty", q.ID)
	case q.Prompt == "":
		return fmt.Errorf("question %s: prompt is empty", q.ID)
	case len(q.Choices) < MinChoices:
		return fmt.Errorf("question %s: need at least %d choices, got %d", q.ID, MinChoices, len(q.Choices))
	case len(q.Choices) > MaxChoices:
		return fmt.Errorf("question %s: at most %d choices allowed, got %d", q.ID, MaxChoices, len(q.Choices))
	case q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices):
		return fmt.Errorf("question %s: correct index %d out of range", q.ID, q.CorrectIndex)
	case !q.Band.Valid():
		return fmt.Errorf("question %s: unknown band %q", q.ID, q.Band)
	case !q.Tier.Valid():
		return fmt.Errorf("question %s: unknown tier %d", q.ID, q.Tier)
	}
	return nil
}

const (
	MinChoices = 2
	MaxChoices = 6
)

// Key identifies an inventory: one exam type and topic.
type Key struct {
	ExamType string
	Topic    string
}

func (k Key) String() string {
	return k.ExamType + "/" + k.Topic
}
