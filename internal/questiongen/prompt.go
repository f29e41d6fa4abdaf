package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/prepforge/internal/question"
)

const systemPrompt = `You write practice questions for standardized exams.

Rules:
- Produce exactly one multiple-choice question for the requested exam, topic and difficulty.
- Match the real exam's style, vocabulary and answer-option count.
- Exactly one option is correct. Distractors must reflect realistic mistakes, not filler.
- Do not prefix options with letters; the application adds them.
- The question must be answerable from its own text. Include any passage, table or scenario it needs.
- The explanation states why the correct option is right and why the strongest distractor is wrong.
- Never repeat or lightly reword a question from the "avoid" list.`

// examStyle gives the model a short reminder of each exam's conventions.
var examStyle = map[string]string{
	"GMAT":  "Graduate management admission: quantitative reasoning, data insights and critical reasoning; five options.",
	"GRE":   "Graduate admission: quantitative comparison, multiple choice and text completion; five options.",
	"MCAT":  "Medical college admission: passage-based natural and social science reasoning; four options.",
	"NCLEX": "Nursing licensure: client-needs scenarios testing clinical judgment and prioritization; four options.",
	"LSAT":  "Law school admission: logical and analytical reasoning; five options.",
}

var bandGuide = map[question.Band]string{
	question.BandEasy:   "easy: a single concept, one or two steps, most prepared candidates answer correctly",
	question.BandMedium: "medium: typical exam difficulty, two or three steps or one subtle trap",
	question.BandHard:   "hard: combines concepts or hides the key insight; most candidates miss it",
	question.BandExpert: "expert: the hardest items on the real exam; several steps and strong distractors",
}

func userMessage(in Input, maxAvoid int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exam: %s\n", in.Key.ExamType)
	if style, ok := examStyle[strings.ToUpper(in.Key.ExamType)]; ok {
		fmt.Fprintf(&b, "Exam style: %s\n", style)
	}
	fmt.Fprintf(&b, "Topic: %s\n", in.Key.Topic)
	guide, ok := bandGuide[in.Band]
	if !ok {
		guide = bandGuide[question.BandMedium]
	}
	fmt.Fprintf(&b, "Difficulty: %s\n", guide)

	b.WriteString("\nAvoid these existing questions:\n")
	avoid := in.Avoid
	if maxAvoid > 0 && len(avoid) > maxAvoid {
		avoid = avoid[len(avoid)-maxAvoid:]
	}
	if len(avoid) == 0 {
		b.WriteString("None")
	}
	for i, a := range avoid {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(a, 200))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
