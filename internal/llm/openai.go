package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider also serves any OpenAI-compatible endpoint through
// Backend.BaseURL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(b Backend) (*OpenAIProvider, error) {
	if b.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	return newOpenAICompatible(b), nil
}

func newOpenAICompatible(b Backend) *OpenAIProvider {
	cfg := openai.DefaultConfig(b.APIKey)
	if b.BaseURL != "" {
		cfg.BaseURL = b.BaseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: b.Model}
}

func (p *OpenAIProvider) ModelID() string { return p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chat := openai.ChatCompletionRequest{
		Model:               p.model,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}
	if req.System != "" {
		chat.Messages = append(chat.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chat.Messages = append(chat.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if req.Schema != nil {
		raw, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", req.Schema.Name, err)
		}
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      json.RawMessage(raw),
				Strict:      true,
			},
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, classifyStatus(reqErr.HTTPStatusCode, err)
		}
		return nil, &UnavailableError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &InvalidResponseError{Err: errors.New("response has no choices")}
	}

	choice := resp.Choices[0]
	content := json.RawMessage(choice.Message.Content)
	stop := "end"
	if choice.FinishReason == openai.FinishReasonLength {
		stop = "max_tokens"
	}
	if err := finish(req, content, stop); err != nil {
		return nil, err
	}
	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Response{
		Content:    content,
		Usage:      newUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		Model:      model,
		StopReason: stop,
	}, nil
}
