package questiongen

import "github.com/abhisek/prepforge/internal/llm"

const (
	minChoices = 4
	maxChoices = 5
)

// QuestionSchema is the structured output requested from the model.
var QuestionSchema = &llm.Schema{
	Name:        "exam-question",
	Description: "One multiple-choice standardized-test practice question with its worked explanation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "The question stem shown to the learner, including any passage or data it needs",
			},
			"choices": map[string]any{
				"type":        "array",
				"minItems":    minChoices,
				"maxItems":    maxChoices,
				"items":       map[string]any{"type": "string", "minLength": 1},
				"description": "Answer options in display order, without letter prefixes",
			},
			"correct_index": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     maxChoices - 1,
				"description": "Zero-based index of the single correct option",
			},
			"explanation": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Why the correct option is right and the most tempting distractor is wrong",
			},
		},
		"required":             []any{"prompt", "choices", "correct_index", "explanation"},
		"additionalProperties": false,
	},
}
