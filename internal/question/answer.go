package question

import (
	"strconv"
	"strings"
)

// Letter returns the option letter for a zero-based choice index.
func Letter(i int) string {
	if i < 0 || i >= 26 {
		return ""
	}
	return string(rune('A' + i))
}

// ChoiceIndex resolves a learner or bank answer to a zero-based choice index.
// Accepted forms, in order: the full text of a choice (case-insensitive), an
// option letter ("b", "B", "B.") within range, or a one-based option number
// ("2"). Returns -1 when the answer matches nothing.
func ChoiceIndex(answer string, choices []string) int {
	a := strings.TrimSpace(answer)
	if a == "" {
		return -1
	}

	for i, c := range choices {
		if strings.EqualFold(stripLetterPrefix(c), stripLetterPrefix(a)) {
			return i
		}
	}

	letter := strings.TrimRight(a, ".)")
	if len(letter) == 1 {
		c := strings.ToUpper(letter)[0]
		if c >= 'A' && c <= 'Z' && int(c-'A') < len(choices) {
			return int(c - 'A')
		}
	}

	if n, err := strconv.Atoi(letter); err == nil && n >= 1 && n <= len(choices) {
		return n - 1
	}
	return -1
}

// Check reports whether answer selects the correct choice.
func (q *Question) Check(answer string) bool {
	return ChoiceIndex(answer, q.Choices) == q.CorrectIndex
}

// stripLetterPrefix removes a leading "A. " / "B) " marker that some sources
// embed in the choice text.
func stripLetterPrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && s[0] >= 'A' && s[0] <= 'Z' && (s[1] == '.' || s[1] == ')') && s[2] == ' ' {
		return strings.TrimSpace(s[3:])
	}
	return s
}

// NormalizeChoices strips embedded letter markers so choices are stored as
// plain text and rendered with letters by the presentation layer.
func NormalizeChoices(choices []string) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		c = stripLetterPrefix(c)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
