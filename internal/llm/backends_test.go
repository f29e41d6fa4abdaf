package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

var questionReq = Request{
	System:    "You write GMAT practice questions.",
	Messages:  UserMessage("One medium algebra question."),
	MaxTokens: 256,
}

func anthropicReply(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func TestAnthropic_Generate(t *testing.T) {
	url := serve(t, http.StatusOK, anthropicReply(`{"prompt":"2x=4, x?"}`, "end_turn"))
	p, err := NewAnthropicProvider(Backend{APIKey: "k", Model: "claude-haiku", BaseURL: url})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", p.ModelID())

	resp, err := p.Generate(context.Background(), questionReq)
	require.NoError(t, err)
	assert.Equal(t, Usage{InputTokens: 50, OutputTokens: 30, TotalTokens: 80}, resp.Usage)
	assert.Equal(t, "end", resp.StopReason)
	assert.JSONEq(t, `{"prompt":"2x=4, x?"}`, string(resp.Content))
}

func TestAnthropic_TruncatedStructuredOutput(t *testing.T) {
	url := serve(t, http.StatusOK, anthropicReply(`{"prompt":"2x`, "max_tokens"))
	p, err := NewAnthropicProvider(Backend{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	req := questionReq
	req.Schema = promptSchema()
	_, err = p.Generate(context.Background(), req)
	var trunc *TruncatedError
	assert.ErrorAs(t, err, &trunc)
}

func TestAnthropic_StatusMapping(t *testing.T) {
	errBody := map[string]any{"type": "error", "error": map[string]any{"type": "api_error", "message": "x"}}

	url := serve(t, http.StatusTooManyRequests, errBody)
	p, err := NewAnthropicProvider(Backend{APIKey: "k", BaseURL: url})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), questionReq)
	var rl *RateLimitError
	assert.ErrorAs(t, err, &rl)

	url = serve(t, http.StatusInternalServerError, errBody)
	p, err = NewAnthropicProvider(Backend{APIKey: "k", BaseURL: url})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), questionReq)
	var un *UnavailableError
	assert.ErrorAs(t, err, &un)
}

func openAIReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAI_Generate(t *testing.T) {
	url := serve(t, http.StatusOK, openAIReply(`{"prompt":"What is 3+4?"}`))
	p, err := NewOpenAIProvider(Backend{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url + "/v1"})
	require.NoError(t, err)

	req := questionReq
	req.Schema = promptSchema()
	resp, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 65, resp.Usage.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
}

func TestOpenAI_SchemaViolation(t *testing.T) {
	url := serve(t, http.StatusOK, openAIReply(`{"text":"no prompt field"}`))
	p, err := NewOpenAIProvider(Backend{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url + "/v1"})
	require.NoError(t, err)

	req := questionReq
	req.Schema = promptSchema()
	_, err = p.Generate(context.Background(), req)
	var inv *InvalidResponseError
	assert.ErrorAs(t, err, &inv)
}

func TestOpenAI_StatusMapping(t *testing.T) {
	errBody := map[string]any{"error": map[string]any{"type": "tokens", "message": "slow down"}}
	url := serve(t, http.StatusTooManyRequests, errBody)
	p, err := NewOpenAIProvider(Backend{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url + "/v1"})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), questionReq)
	var rl *RateLimitError
	assert.ErrorAs(t, err, &rl)

	url = serve(t, http.StatusBadGateway, errBody)
	p, err = NewOpenAIProvider(Backend{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url + "/v1"})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), questionReq)
	var un *UnavailableError
	assert.ErrorAs(t, err, &un)
}

func TestOpenRouter(t *testing.T) {
	_, err := NewOpenRouterProvider(Backend{Model: "google/gemini-2.0-flash-001"})
	require.Error(t, err)

	p, err := NewOpenRouterProvider(Backend{APIKey: "sk-or", Model: "anthropic/claude-haiku-4-5"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-haiku-4-5", p.ModelID(), "vendor-qualified names are not aliased")

	url := serve(t, http.StatusOK, openAIReply(`plain text`))
	p, err = NewOpenRouterProvider(Backend{APIKey: "sk-or", Model: "x/y", BaseURL: url + "/v1"})
	require.NoError(t, err)
	resp, err := p.Generate(context.Background(), questionReq)
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(resp.Content))
}

func TestModelAliases(t *testing.T) {
	assert.Equal(t, "claude-haiku-4-5-20251001", resolveModel("claude-haiku", anthropicAliases))
	assert.Equal(t, "gemini-2.5-flash", resolveModel("gemini-flash", geminiAliases))
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-2.0-flash", geminiAliases))
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":        map[string]any{"type": "string"},
			"correct_index": map[string]any{"type": "integer", "minimum": 0, "maximum": 5},
			"band":          map[string]any{"type": "string", "enum": []string{"easy", "medium"}},
			"choices": map[string]any{
				"type": "array", "minItems": 2, "maxItems": 6,
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"prompt", "choices"},
	})

	assert.EqualValues(t, "OBJECT", s.Type)
	require.Len(t, s.Properties, 4)
	assert.EqualValues(t, "INTEGER", s.Properties["correct_index"].Type)
	require.NotNil(t, s.Properties["correct_index"].Maximum)
	assert.Equal(t, 5.0, *s.Properties["correct_index"].Maximum)
	assert.Equal(t, []string{"easy", "medium"}, s.Properties["band"].Enum)
	assert.EqualValues(t, "STRING", s.Properties["choices"].Items.Type)
	require.NotNil(t, s.Properties["choices"].MinItems)
	assert.EqualValues(t, 2, *s.Properties["choices"].MinItems)
	assert.Equal(t, []string{"prompt", "choices"}, s.Required)
}
