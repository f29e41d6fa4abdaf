package tui

import (
	"fmt"
	"strings"

	"github.com/abhisek/prepforge/internal/question"
)

// choiceList renders a question's options and tracks the highlighted one.
// After reveal it marks the correct option and the learner's pick.
type choiceList struct {
	options  []string
	selected int

	revealed bool
	correct  int
	chosen   int
}

func newChoiceList(q *question.Question) choiceList {
	return choiceList{options: q.Choices, correct: q.CorrectIndex, chosen: -1}
}

func (c *choiceList) up() {
	if !c.revealed && c.selected > 0 {
		c.selected--
	}
}

func (c *choiceList) down() {
	if !c.revealed && c.selected < len(c.options)-1 {
		c.selected++
	}
}

// reveal shows the result; chosen is -1 when the answer matched no option.
func (c *choiceList) reveal(chosen, correct int) {
	c.revealed = true
	c.chosen = chosen
	c.correct = correct
}

func (c choiceList) view() string {
	var b strings.Builder
	for i, opt := range c.options {
		prefix := "  "
		if i == c.selected && !c.revealed {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, question.Letter(i), opt)

		switch {
		case c.revealed && i == c.correct:
			line = styleCorrect.Render(line + "  ✓")
		case c.revealed && i == c.chosen:
			line = styleWrong.Render(line + "  ✗")
		case c.revealed:
			line = styleDim.Render(line)
		case i == c.selected:
			line = styleSelected.Render(line)
		default:
			line = styleBody.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
