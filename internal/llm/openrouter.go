package llm

import "errors"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider targets OpenRouter's OpenAI-compatible API. Model
// names are vendor-qualified ("google/gemini-2.0-flash-001") and are not
// aliased.
func NewOpenRouterProvider(b Backend) (*OpenAIProvider, error) {
	if b.APIKey == "" {
		return nil, errors.New("openrouter API key is required")
	}
	if b.BaseURL == "" {
		b.BaseURL = defaultOpenRouterBaseURL
	}
	return newOpenAICompatible(b), nil
}
