// Package bank ingests pre-authored question banks and holds the static
// emergency set served when every other tier is empty.
//
// Bank files come from several exports that disagree on field names, so
// items are schema-checked in their raw form and then normalised into
// question.Question once. An item that fails either step is skipped and
// reported; it never aborts the file.
package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/prepforge/internal/question"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the decoder from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported bank file %q: want .json, .yaml or .yml", path)
}

// Defaults fill fields an item and its file envelope leave out.
type Defaults struct {
	ExamType string
	Topic    string
	Tier     question.Tier
}

// Skipped describes an item that was not ingested.
type Skipped struct {
	Index  int
	Reason string
}

type Result struct {
	Questions []*question.Question
	Skipped   []Skipped
}

// ErrLayout is returned when a document is neither a list of items nor an
// object with a questions list.
var ErrLayout = errors.New("bank document must be a list of questions or an object with a questions list")

// LoadFile reads a bank file, choosing the decoder by extension.
func LoadFile(path string, def Defaults) (*Result, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bank: %w", err)
	}
	defer fh.Close()
	res, err := Load(fh, f, def)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return res, nil
}

// Load decodes and normalises one bank document.
func Load(r io.Reader, f Format, def Defaults) (*Result, error) {
	doc, err := decode(r, f)
	if err != nil {
		return nil, err
	}
	if def.Tier == 0 {
		def.Tier = question.TierAuthored
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["questions"].([]any)
		if !ok {
			return nil, ErrLayout
		}
		items = list
		if s := firstString(v, "exam_type", "exam"); s != "" {
			def.ExamType = s
		}
		if s := firstString(v, "topic", "topic_area"); s != "" {
			def.Topic = s
		}
	default:
		return nil, ErrLayout
	}

	sch, err := compileItemSchema()
	if err != nil {
		return nil, err
	}

	res := &Result{Questions: make([]*question.Question, 0, len(items))}
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		q, err := ingest(sch, it, def)
		if err == nil && seen[q.ID] {
			err = fmt.Errorf("duplicate id %s", q.ID)
		}
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}
		seen[q.ID] = true
		res.Questions = append(res.Questions, q)
	}
	return res, nil
}

func decode(r io.Reader, f Format) (any, error) {
	switch f {
	case FormatJSON:
		doc, err := jsonschema.UnmarshalJSON(r)
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return doc, nil
	case FormatYAML:
		var doc any
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unknown bank format %q", f)
}

func ingest(sch *jsonschema.Schema, it any, def Defaults) (*question.Question, error) {
	item, ok := it.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("item is %T, want an object", it)
	}
	if err := sch.Validate(item); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	q, err := normalize(item, def)
	if err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func normalize(item map[string]any, def Defaults) (*question.Question, error) {
	q := &question.Question{
		ExamType:    strings.ToUpper(orDefault(firstString(item, "exam_type", "exam"), def.ExamType)),
		Topic:       orDefault(firstString(item, "topic_area", "topic"), def.Topic),
		Prompt:      firstString(item, "question_text", "question", "prompt"),
		Explanation: firstString(item, "explanation"),
		Band:        question.ParseBand(firstString(item, "difficulty", "band")),
		Tier:        def.Tier,
	}
	if q.Topic == "" {
		return nil, errors.New("topic is empty")
	}
	q.Choices = question.NormalizeChoices(choicesOf(item))

	q.CorrectIndex = -1
	if v, ok := item["correct_index"]; ok {
		q.CorrectIndex = intOf(v)
	} else {
		for _, k := range []string{"correct_answer", "answer", "correct"} {
			v, ok := item[k]
			if !ok {
				continue
			}
			if _, isText := v.(string); isText {
				q.CorrectIndex = question.ChoiceIndex(v.(string), q.Choices)
			} else {
				// Numeric answers are zero-based indices.
				q.CorrectIndex = intOf(v)
			}
			break
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return nil, fmt.Errorf("correct answer does not match any of %d choices", len(q.Choices))
	}

	q.ID = firstString(item, "id")
	if q.ID == "" {
		q.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(q.ExamType+"\x00"+q.Prompt)).String()
	}
	return q, nil
}

// choicesOf reads options as a list, a letter-keyed map or option_a..option_f.
func choicesOf(item map[string]any) []string {
	for _, k := range []string{"options", "choices"} {
		switch v := item[k].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, c := range v {
				out = append(out, stringOf(c))
			}
			return out
		case map[string]any:
			keys := make([]string, 0, len(v))
			for key := range v {
				keys = append(keys, key)
			}
			slices.SortFunc(keys, func(a, b string) int {
				return strings.Compare(strings.ToUpper(a), strings.ToUpper(b))
			})
			out := make([]string, 0, len(v))
			for _, key := range keys {
				out = append(out, stringOf(v[key]))
			}
			return out
		}
	}
	var out []string
	for c := 'a'; c <= 'f'; c++ {
		v, ok := item["option_"+string(c)]
		if !ok {
			break
		}
		out = append(out, stringOf(v))
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(stringOf(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func intOf(v any) int {
	n, err := strconv.Atoi(stringOf(v))
	if err != nil {
		return -1
	}
	return n
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
