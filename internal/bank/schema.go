package bank

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// itemSchema accepts the field spellings seen across bank exports. It only
// checks shape; normalize resolves which spelling an item used.
const itemSchema = `{
  "type": "object",
  "allOf": [
    {"anyOf": [
      {"required": ["question_text"]},
      {"required": ["question"]},
      {"required": ["prompt"]}
    ]},
    {"anyOf": [
      {"required": ["options"]},
      {"required": ["choices"]},
      {"required": ["option_a", "option_b"]}
    ]},
    {"anyOf": [
      {"required": ["correct_answer"]},
      {"required": ["answer"]},
      {"required": ["correct"]},
      {"required": ["correct_index"]}
    ]}
  ],
  "properties": {
    "id":            {"type": ["string", "integer"]},
    "question_text": {"$ref": "#/$defs/text"},
    "question":      {"$ref": "#/$defs/text"},
    "prompt":        {"$ref": "#/$defs/text"},
    "options":       {"$ref": "#/$defs/choices"},
    "choices":       {"$ref": "#/$defs/choices"},
    "correct_answer": {"type": ["string", "integer"]},
    "answer":         {"type": ["string", "integer"]},
    "correct":        {"type": ["string", "integer"]},
    "correct_index":  {"type": "integer", "minimum": 0},
    "difficulty":     {"type": ["string", "integer"]},
    "band":           {"type": ["string", "integer"]},
    "explanation":    {"type": "string"},
    "topic":          {"type": "string"},
    "topic_area":     {"type": "string"},
    "exam_type":      {"type": "string"},
    "exam":           {"type": "string"}
  },
  "$defs": {
    "text": {"type": "string", "minLength": 1},
    "choice": {"type": ["string", "number"]},
    "choices": {"anyOf": [
      {"type": "array", "items": {"$ref": "#/$defs/choice"}, "minItems": 2},
      {"type": "object", "additionalProperties": {"$ref": "#/$defs/choice"}, "minProperties": 2}
    ]}
  }
}`

var compileItemSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(itemSchema))
	if err != nil {
		return nil, fmt.Errorf("decode bank item schema: %w", err)
	}
	const url = "mem://bank/item.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
})
