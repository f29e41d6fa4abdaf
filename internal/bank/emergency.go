package bank

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/abhisek/prepforge/internal/question"
)

//go:embed emergency/*.yaml
var emergencyFS embed.FS

// genericExam holds items served for exams without their own set.
const genericExam = "GENERIC"

// Emergency is the static last-resort set. It is read-only after load and
// safe for concurrent use.
type Emergency struct {
	byExam map[string][]*question.Question
	byID   map[string]*question.Question
}

// LoadEmergency parses the embedded set. Any invalid item is an error:
// the set ships with the binary and must be complete.
func LoadEmergency() (*Emergency, error) {
	files, err := fs.Glob(emergencyFS, "emergency/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	e := &Emergency{
		byExam: make(map[string][]*question.Question),
		byID:   make(map[string]*question.Question),
	}
	for _, name := range files {
		f, err := emergencyFS.Open(name)
		if err != nil {
			return nil, err
		}
		res, err := Load(f, FormatYAML, Defaults{Tier: question.TierEmergency})
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("emergency %s: %w", path.Base(name), err)
		}
		if len(res.Skipped) > 0 {
			return nil, fmt.Errorf("emergency %s: item %d: %s", path.Base(name), res.Skipped[0].Index, res.Skipped[0].Reason)
		}
		for _, q := range res.Questions {
			if _, dup := e.byID[q.ID]; dup {
				return nil, fmt.Errorf("emergency %s: duplicate id %s", path.Base(name), q.ID)
			}
			e.byID[q.ID] = q
			e.byExam[q.ExamType] = append(e.byExam[q.ExamType], q)
		}
	}
	if len(e.byExam[genericExam]) == 0 {
		return nil, fmt.Errorf("emergency set has no %s items", genericExam)
	}
	return e, nil
}

// MustLoadEmergency is LoadEmergency for program start-up.
func MustLoadEmergency() *Emergency {
	e, err := LoadEmergency()
	if err != nil {
		panic(err)
	}
	return e
}

// For returns the candidates for key, most specific first: items on the
// key's topic, then the rest of its exam, then the generic set. The result
// is never empty. Generic items are relabelled with the requested exam so
// callers can attribute responses.
func (e *Emergency) For(key question.Key) []*question.Question {
	exam := e.byExam[strings.ToUpper(key.ExamType)]

	var topical, other []*question.Question
	for _, q := range exam {
		if strings.EqualFold(q.Topic, key.Topic) {
			topical = append(topical, q)
		} else {
			other = append(other, q)
		}
	}
	out := append(topical, other...)
	if len(out) > 0 {
		return out
	}
	for _, q := range e.byExam[genericExam] {
		c := *q
		c.ExamType = key.ExamType
		out = append(out, &c)
	}
	return out
}

// Get looks an emergency item up by ID.
func (e *Emergency) Get(id string) (*question.Question, bool) {
	q, ok := e.byID[id]
	return q, ok
}

// Exams lists the exam types with a dedicated set.
func (e *Emergency) Exams() []string {
	out := make([]string, 0, len(e.byExam))
	for k := range e.byExam {
		if k != genericExam {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (e *Emergency) Len() int { return len(e.byID) }
