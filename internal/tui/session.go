package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/prepforge/internal/ability"
	"github.com/abhisek/prepforge/internal/engine"
	"github.com/abhisek/prepforge/internal/question"
	"github.com/abhisek/prepforge/internal/session"
)

// Engine is the part of the engine a practice session drives.
type Engine interface {
	GetNextQuestion(ctx context.Context, sess *session.State, req engine.NextRequest) (engine.Served, error)
	SubmitAnswer(ctx context.Context, sess *session.State, a engine.Answer) (engine.Feedback, error)
	Readiness(ctx context.Context, userID, examType string) (ability.Readiness, error)
	WeakTopics(ctx context.Context, userID, examType string) ([]ability.TopicAccuracy, error)
}

type phase int

const (
	phaseLoading phase = iota
	phaseQuestion
	phaseGrading
	phaseFeedback
	phaseSummary
	phaseFailed
)

type servedMsg struct {
	served engine.Served
	err    error
}

type gradedMsg struct {
	answer   string
	feedback engine.Feedback
	err      error
}

type summaryMsg struct {
	readiness *ability.Readiness
	weak      []ability.TopicAccuracy
}

// Model is the bubbletea model of one practice session.
type Model struct {
	ctx   context.Context
	eng   Engine
	sess  *session.State
	topic string
	count int

	phase    phase
	asked    int
	served   engine.Served
	choices  choiceList
	input    textinput.Model
	started  time.Time
	feedback engine.Feedback
	saveErr  error
	err      error

	readiness *ability.Readiness
	weak      []ability.TopicAccuracy

	width int
	now   func() time.Time
}

// New returns a session of count questions on topic.
func New(ctx context.Context, eng Engine, sess *session.State, topic string, count int) *Model {
	return &Model{
		ctx:   ctx,
		eng:   eng,
		sess:  sess,
		topic: topic,
		count: count,
		input: newInput(),
		width: 80,
		now:   time.Now,
	}
}

// Run runs the session full screen until the learner quits or finishes.
func Run(ctx context.Context, eng Engine, sess *session.State, topic string, count int) error {
	_, err := tea.NewProgram(New(ctx, eng, sess, topic, count)).Run()
	return err
}

func newInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "letter, option text or number; Enter picks the highlighted option"
	ti.CharLimit = 120
	return ti
}

func (m *Model) Init() tea.Cmd {
	return m.next()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case servedMsg:
		return m.handleServed(msg)
	case gradedMsg:
		return m.handleGraded(msg)
	case summaryMsg:
		m.readiness, m.weak = msg.readiness, msg.weak
		m.phase = phaseSummary
		return m, nil
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}

	if m.phase == phaseQuestion {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleServed(msg servedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.phase = phaseFailed
		return m, nil
	}
	m.asked++
	m.served = msg.served
	m.choices = newChoiceList(msg.served.Question)
	m.input = newInput()
	m.started = m.now()
	m.phase = phaseQuestion
	// Focus without starting the blink timer.
	m.input.Focus()
	return m, nil
}

func (m *Model) handleGraded(msg gradedMsg) (tea.Model, tea.Cmd) {
	m.saveErr = nil
	if msg.err != nil {
		if !errors.Is(msg.err, engine.ErrPersistenceUnavailable) {
			m.err = msg.err
			m.phase = phaseFailed
			return m, nil
		}
		// Graded but not stored; keep going.
		m.saveErr = msg.err
	}
	m.feedback = msg.feedback
	chosen := question.ChoiceIndex(msg.answer, m.served.Question.Choices)
	m.choices.reveal(chosen, msg.feedback.CorrectIndex)
	m.phase = phaseFeedback
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.phase {
	case phaseQuestion:
		switch key {
		case "esc":
			return m, m.summarize()
		case "up":
			m.choices.up()
			return m, nil
		case "down":
			m.choices.down()
			return m, nil
		case "enter":
			answer := strings.TrimSpace(m.input.Value())
			if answer == "" {
				answer = question.Letter(m.choices.selected)
			}
			m.phase = phaseGrading
			return m, m.submit(answer)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case phaseFeedback:
		if key == "esc" || m.asked >= m.count {
			return m, m.summarize()
		}
		m.phase = phaseLoading
		return m, m.next()

	case phaseSummary, phaseFailed:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) next() tea.Cmd {
	ctx, eng, sess, topic := m.ctx, m.eng, m.sess, m.topic
	return func() tea.Msg {
		s, err := eng.GetNextQuestion(ctx, sess, engine.NextRequest{Topic: topic, Allowed: true})
		return servedMsg{served: s, err: err}
	}
}

func (m *Model) submit(answer string) tea.Cmd {
	ctx, eng, sess := m.ctx, m.eng, m.sess
	a := engine.Answer{
		QuestionID:   m.served.Question.ID,
		Choice:       answer,
		ResponseTime: m.now().Sub(m.started),
	}
	return func() tea.Msg {
		fb, err := eng.SubmitAnswer(ctx, sess, a)
		return gradedMsg{answer: answer, feedback: fb, err: err}
	}
}

// summarize loads the learner insights; failures just leave them out.
func (m *Model) summarize() tea.Cmd {
	m.phase = phaseLoading
	ctx, eng, user, exam := m.ctx, m.eng, m.sess.UserID, m.sess.ExamType
	return func() tea.Msg {
		var out summaryMsg
		if r, err := eng.Readiness(ctx, user, exam); err == nil {
			out.readiness = &r
		}
		if w, err := eng.WeakTopics(ctx, user, exam); err == nil {
			out.weak = w
		}
		return out
	}
}
