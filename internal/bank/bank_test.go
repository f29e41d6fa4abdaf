package bank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepforge/internal/question"
)

func TestLoad_JSONFieldDrift(t *testing.T) {
	doc := `[
	  {"id": "a1", "exam_type": "gre", "topic": "algebra", "question_text": "2+2?",
	   "options": ["3", "4", "5", "6"], "correct_answer": "B", "difficulty": "easy"},
	  {"exam": "GRE", "topic_area": "geometry", "question": "Sides of a hexagon?",
	   "choices": {"B": "6", "A": "5", "C": "7"}, "answer": "6", "difficulty": 4},
	  {"exam_type": "GRE", "topic": "algebra", "prompt": "x+1=3, x?",
	   "option_a": "1", "option_b": "2", "option_c": "3", "correct": 1, "explanation": "x=2"}
	]`
	res, err := Load(strings.NewReader(doc), FormatJSON, Defaults{})
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.Len(t, res.Questions, 3)

	q := res.Questions[0]
	assert.Equal(t, "a1", q.ID)
	assert.Equal(t, "GRE", q.ExamType)
	assert.Equal(t, 1, q.CorrectIndex)
	assert.Equal(t, question.BandEasy, q.Band)
	assert.Equal(t, question.TierAuthored, q.Tier)

	q = res.Questions[1]
	assert.Equal(t, "geometry", q.Topic)
	assert.Equal(t, []string{"5", "6", "7"}, q.Choices, "map choices are ordered by letter")
	assert.Equal(t, 1, q.CorrectIndex)
	assert.Equal(t, question.BandHard, q.Band)
	assert.NotEmpty(t, q.ID)

	q = res.Questions[2]
	assert.Equal(t, []string{"1", "2", "3"}, q.Choices)
	assert.Equal(t, 1, q.CorrectIndex, "numeric answers are zero-based")
	assert.Equal(t, "x=2", q.Explanation)
}

func TestLoad_DerivedIDIsStable(t *testing.T) {
	doc := `[{"exam_type":"GMAT","topic":"t","prompt":"p?","options":["a","b"],"correct_answer":"A"}]`
	r1, err := Load(strings.NewReader(doc), FormatJSON, Defaults{})
	require.NoError(t, err)
	r2, err := Load(strings.NewReader(doc), FormatJSON, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, r1.Questions[0].ID, r2.Questions[0].ID)
}

func TestLoad_YAMLEnvelopeAndSkips(t *testing.T) {
	doc := `
exam_type: MCAT
topic: biology
questions:
  - id: ok
    question: Site of protein synthesis?
    options: ["A. Nucleus", "B. Ribosome"]
    correct_answer: b
  - id: no-answer
    question: Missing answer?
    options: [x, y]
  - id: bad-answer
    question: Unmatched answer?
    options: [x, y]
    correct_answer: "z"
  - id: ok
    question: Duplicate id?
    options: [x, y]
    correct_answer: A
  - just a string
`
	res, err := Load(strings.NewReader(doc), FormatYAML, Defaults{Tier: question.TierCached})
	require.NoError(t, err)
	require.Len(t, res.Questions, 1)

	q := res.Questions[0]
	assert.Equal(t, "MCAT", q.ExamType)
	assert.Equal(t, "biology", q.Topic)
	assert.Equal(t, []string{"Nucleus", "Ribosome"}, q.Choices)
	assert.Equal(t, 1, q.CorrectIndex)
	assert.Equal(t, question.TierCached, q.Tier)
	assert.Equal(t, question.BandMedium, q.Band)

	require.Len(t, res.Skipped, 4)
	idx := make([]int, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		idx = append(idx, s.Index)
		assert.NotEmpty(t, s.Reason)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, idx)
}

func TestLoad_Layout(t *testing.T) {
	_, err := Load(strings.NewReader(`{"items": []}`), FormatJSON, Defaults{})
	assert.ErrorIs(t, err, ErrLayout)

	_, err = Load(strings.NewReader(`"x"`), FormatJSON, Defaults{})
	assert.ErrorIs(t, err, ErrLayout)

	_, err = Load(strings.NewReader(`[`), FormatJSON, Defaults{})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
- exam_type: LSAT
  topic: logic
  prompt: "If P then Q. Not Q. Therefore?"
  choices: [P, Not P]
  correct_answer: Not P
`), 0o600))

	res, err := LoadFile(path, Defaults{})
	require.NoError(t, err)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, 1, res.Questions[0].CorrectIndex)

	_, err = LoadFile(filepath.Join(dir, "bank.csv"), Defaults{})
	assert.Error(t, err)
}

func TestEmergency(t *testing.T) {
	e, err := LoadEmergency()
	require.NoError(t, err)
	assert.Equal(t, []string{"GMAT", "GRE", "LSAT", "MCAT", "NCLEX"}, e.Exams())

	for _, exam := range append(e.Exams(), "TOEFL") {
		qs := e.For(question.Key{ExamType: exam, Topic: "anything"})
		require.NotEmpty(t, qs, exam)
		for _, q := range qs {
			assert.Equal(t, question.TierEmergency, q.Tier)
			assert.NoError(t, q.Validate())
		}
	}

	qs := e.For(question.Key{ExamType: "nclex", Topic: "prioritization"})
	require.GreaterOrEqual(t, len(qs), 2)
	assert.Equal(t, "prioritization", qs[0].Topic)
	assert.Equal(t, "prioritization", qs[1].Topic)

	generic := e.For(question.Key{ExamType: "TOEFL", Topic: "reading"})
	assert.Equal(t, "TOEFL", generic[0].ExamType)

	got, ok := e.Get("em-gmat-002")
	require.True(t, ok)
	assert.Equal(t, "12", got.CorrectAnswer())
	_, ok = e.Get("missing")
	assert.False(t, ok)
}
