package questiongen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/prepforge/internal/llm"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/store"
)

var arithmetic = question.Key{ExamType: "GMAT", Topic: "arithmetic"}

func reply(prompt string, choices []string, idx int) llm.MockResponse {
	raw, _ := json.Marshal(map[string]any{
		"prompt":        prompt,
		"choices":       choices,
		"correct_index": idx,
		"explanation":   "12% of 250 is 0.12 x 250 = 30.",
	})
	return llm.MockResponse{Content: raw}
}

var fiveChoices = []string{"25", "28", "30", "32", "35"}

func TestGenerate_MapsOutput(t *testing.T) {
	mock := llm.NewMockProvider(reply("What is 12% of 250?", fiveChoices, 2))
	g := New(mock, DefaultConfig(), nil)

	q, err := g.Generate(context.Background(), arithmetic, question.BandEasy)
	require.NoError(t, err)
	assert.Equal(t, "GMAT", q.ExamType)
	assert.Equal(t, "arithmetic", q.Topic)
	assert.Equal(t, question.BandEasy, q.Band)
	assert.Equal(t, "30", q.CorrectAnswer())
	assert.Empty(t, q.ID, "provenance is assigned by the caller")

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, QuestionSchema, calls[0].Schema)
	msg := calls[0].Messages[0].Content
	assert.Contains(t, msg, "Exam: GMAT")
	assert.Contains(t, msg, "Topic: arithmetic")
	assert.Contains(t, msg, "easy:")
	assert.Contains(t, msg, "five options")
}

func TestGenerate_StripsLetterPrefixes(t *testing.T) {
	mock := llm.NewMockProvider(reply("What is 12% of 250?",
		[]string{"A) 25", "B) 28", "C) 30", "D) 32", "E) 35"}, 2))
	q, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), arithmetic, question.BandEasy)
	require.NoError(t, err)
	assert.Equal(t, fiveChoices, q.Choices)
}

func TestGenerate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		resp    llm.MockResponse
		avoid   []string
		checker string
	}{
		{"duplicate choices", reply("Q?", []string{"1", "2", "2", "3"}, 0), nil, "structural"},
		{"index out of range", reply("Q?", []string{"1", "2", "3", "4"}, 4), nil, "structural"},
		{"too few choices", reply("Q?", []string{"1", "2", "3"}, 0), nil, "structural"},
		{"empty prompt", reply("  ", []string{"1", "2", "3", "4"}, 0), nil, "structural"},
		{"long prompt", reply(strings.Repeat("x", maxPromptLen+1), []string{"1", "2", "3", "4"}, 0), nil, "structural"},
		{"repeat", reply("What is 12% of 250?", fiveChoices, 2), []string{"what is 12 % of 250"}, "duplicate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(llm.NewMockProvider(tc.resp), DefaultConfig(), nil)
			_, err := g.GenerateInput(context.Background(), Input{Key: arithmetic, Band: question.BandMedium, Avoid: tc.avoid})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.checker, verr.Validator)
		})
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.RateLimitError{Err: errors.New("429")}})
	_, err := New(mock, DefaultConfig(), nil).Generate(context.Background(), arithmetic, question.BandHard)
	var rl *llm.RateLimitError
	assert.ErrorAs(t, err, &rl)
}

func TestGenerate_AvoidsStoredPrompts(t *testing.T) {
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	require.NoError(t, s.PoolRepo().Insert(ctx, &question.Question{
		ID: "a-1", ExamType: "GMAT", Topic: "arithmetic", Prompt: "What is 12% of 250?",
		Choices: fiveChoices, CorrectIndex: 2, Band: question.BandEasy, Tier: question.TierAuthored,
		CreatedAt: time.Now(),
	}))

	mock := llm.NewMockProvider(reply("What is 12% of 250?", fiveChoices, 2))
	_, err = New(mock, DefaultConfig(), s.PoolRepo()).Generate(ctx, arithmetic, question.BandEasy)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "duplicate", verr.Validator)
	assert.Contains(t, mock.Calls()[0].Messages[0].Content, "1. What is 12% of 250?")
}

func TestGenerate_DefaultsPurpose(t *testing.T) {
	var got string
	mock := llm.NewMockProvider()
	mock.Fallback = func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		got = llm.PurposeFrom(ctx)
		return nil, errors.New("stop")
	}
	g := New(mock, DefaultConfig(), nil)

	_, _ = g.Generate(context.Background(), arithmetic, question.BandEasy)
	assert.Equal(t, llm.PurposeCached, got)

	_, _ = g.Generate(llm.WithPurpose(context.Background(), llm.PurposeOnDemand), arithmetic, question.BandEasy)
	assert.Equal(t, llm.PurposeOnDemand, got)
}

func TestUserMessage_CapsAvoidList(t *testing.T) {
	avoid := []string{"q-first", "q-second", "q-third", "q-fourth"}
	msg := userMessage(Input{Key: question.Key{ExamType: "unknown", Topic: "t"}, Band: "weird", Avoid: avoid}, 2)
	assert.NotContains(t, msg, "q-first")
	assert.Contains(t, msg, "1. q-third")
	assert.Contains(t, msg, "2. q-fourth")
	assert.Contains(t, msg, "medium:")
	assert.NotContains(t, msg, "Exam style")
}
