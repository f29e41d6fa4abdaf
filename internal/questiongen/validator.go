package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/prepforge/internal/question"
)

// Validator inspects a generated question before it is returned.
// Implementations must be safe for concurrent use.
type Validator interface {
	Name() string
	Validate(q *question.Question, in Input) *ValidationError
}

// ValidationError explains why a generated question was rejected.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generated question rejected by %s: %s", e.Validator, e.Message)
}

// Limits on generated text, in bytes.
const (
	maxPromptLen      = 1200
	maxChoiceLen      = 300
	maxExplanationLen = 1500
)

// StructuralValidator checks shape: non-empty text within limits, distinct
// non-empty choices and a correct index that points at one of them.
type StructuralValidator struct{}

func (StructuralValidator) Name() string { return "structural" }

func (v StructuralValidator) Validate(q *question.Question, _ Input) *ValidationError {
	fail := func(format string, args ...any) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf(format, args...)}
	}
	switch {
	case strings.TrimSpace(q.Prompt) == "":
		return fail("prompt is empty")
	case len(q.Prompt) > maxPromptLen:
		return fail("prompt exceeds %d bytes", maxPromptLen)
	case strings.TrimSpace(q.Explanation) == "":
		return fail("explanation is empty")
	case len(q.Explanation) > maxExplanationLen:
		return fail("explanation exceeds %d bytes", maxExplanationLen)
	case len(q.Choices) < minChoices || len(q.Choices) > maxChoices:
		return fail("need %d-%d choices, got %d", minChoices, maxChoices, len(q.Choices))
	case q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices):
		return fail("correct_index %d out of range", q.CorrectIndex)
	}

	seen := make(map[string]int, len(q.Choices))
	for i, c := range q.Choices {
		c = strings.TrimSpace(c)
		if c == "" {
			return fail("choice %s is empty", question.Letter(i))
		}
		if len(c) > maxChoiceLen {
			return fail("choice %s exceeds %d bytes", question.Letter(i), maxChoiceLen)
		}
		k := strings.ToLower(c)
		if j, dup := seen[k]; dup {
			return fail("choices %s and %s are identical", question.Letter(j), question.Letter(i))
		}
		seen[k] = i
	}
	return nil
}

// DuplicateValidator rejects a prompt that matches one already in the
// inventory, ignoring case, punctuation and spacing.
type DuplicateValidator struct{}

func (DuplicateValidator) Name() string { return "duplicate" }

func (v DuplicateValidator) Validate(q *question.Question, in Input) *ValidationError {
	p := fingerprint(q.Prompt)
	for _, prior := range in.Avoid {
		if fingerprint(prior) == p {
			return &ValidationError{Validator: v.Name(), Message: "prompt repeats an existing question"}
		}
	}
	return nil
}

func fingerprint(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
