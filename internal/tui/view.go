package tui

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
)

func (m *Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.SetContent(m.render())
	return v
}

func (m *Model) render() string {
	width := max(40, m.width-4)

	var body string
	switch m.phase {
	case phaseLoading:
		body = styleDim.Render("Choosing your next question...")
	case phaseQuestion, phaseGrading:
		body = m.renderQuestion(width)
	case phaseFeedback:
		body = m.renderQuestion(width) + "\n" + m.renderFeedback(width)
	case phaseSummary:
		body = m.renderSummary(width)
	case phaseFailed:
		body = styleWrong.Render("Session stopped: "+m.err.Error()) + "\n\n" + styleHint.Render("Press any key to exit.")
	}

	title := styleTitle.Render("PrepForge") + styleDim.Render(fmt.Sprintf("  %s / %s", m.sess.ExamType, m.topic))
	return title + "\n" + styleRule.Render(strings.Repeat("─", width)) + "\n\n" + body + "\n"
}

func (m *Model) renderQuestion(width int) string {
	q := m.served.Question
	var b strings.Builder

	info := styleInfo.Render(fmt.Sprintf("Question %d/%d", m.asked, m.count))
	badge := tierStyle(m.served.Tier).Render(m.served.Tier.String()) + styleDim.Render(" · "+string(q.Band))
	sum := m.sess.Summary()
	score := styleDim.Render(fmt.Sprintf("%d/%d correct", sum.TotalCorrect, sum.TotalQuestions))
	b.WriteString(info + "  " + badge + "  " + score + "\n\n")

	b.WriteString(stylePrompt.Width(width).Render(q.Prompt))
	b.WriteString("\n\n")
	b.WriteString(m.choices.view())

	switch m.phase {
	case phaseQuestion:
		b.WriteString("\n" + m.input.View() + "\n")
		b.WriteString(styleHint.Render("↑↓ highlight · Enter answer · Esc finish"))
	case phaseGrading:
		b.WriteString("\n" + styleDim.Render("Checking..."))
	}
	return b.String()
}

func (m *Model) renderFeedback(width int) string {
	fb := m.feedback
	var b strings.Builder
	if fb.Correct {
		b.WriteString(styleCorrect.Render("✓ Correct!"))
	} else {
		b.WriteString(styleWrong.Render("✗ Not quite.") + styleBody.Render(fmt.Sprintf(" The answer is %s) %s",
			m.served.Question.CorrectLetter(), fb.CorrectAnswer)))
	}
	b.WriteString("\n")
	if fb.Explanation != "" {
		b.WriteString("\n" + styleBody.Width(width).Render(fb.Explanation) + "\n")
	}
	if m.saveErr != nil {
		b.WriteString("\n" + styleWarn.Render("This answer could not be saved.") + "\n")
	}
	hint := "Press any key for the next question · Esc finish"
	if m.asked >= m.count {
		hint = "Press any key for your summary"
	}
	b.WriteString("\n" + styleHint.Render(hint))
	return b.String()
}

func (m *Model) renderSummary(width int) string {
	sum := m.sess.Summary()
	barWidth := min(40, width-20)

	var b strings.Builder
	b.WriteString(styleInfo.Render("Session complete") + "\n\n")
	b.WriteString(fmt.Sprintf("%d of %d correct in %s\n\n", sum.TotalCorrect, sum.TotalQuestions,
		sum.Duration.Round(time.Second)))
	b.WriteString(bar("Accuracy", sum.Accuracy, barWidth) + "\n")
	for _, t := range sum.Topics {
		if t.Attempted == 0 {
			continue
		}
		b.WriteString(bar("  "+t.Topic, float64(t.Correct)/float64(t.Attempted), barWidth) + "\n")
	}

	if r := m.readiness; r != nil {
		b.WriteString("\n" + bar("Readiness", float64(r.Score)/100, barWidth) + "\n")
		b.WriteString(styleDim.Render(fmt.Sprintf("%s confidence", r.Confidence)) + "\n")
		if r.Recommendation != "" {
			b.WriteString(styleBody.Width(width).Render(r.Recommendation) + "\n")
		}
	}
	if len(m.weak) > 0 {
		b.WriteString("\n" + styleInfo.Render("Topics to review") + "\n")
		for _, w := range m.weak {
			b.WriteString(fmt.Sprintf("  %-24s %3.0f%% of %d\n", w.Topic, w.Accuracy*100, w.Answered))
		}
	}
	b.WriteString("\n" + styleHint.Render("Press any key to exit."))
	return styleCard.Width(width).Render(b.String())
}
