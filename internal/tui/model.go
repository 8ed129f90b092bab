package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/recite/internal/fsm"
	"github.com/rbright/recite/internal/session"
)

// Dispatcher delivers user intents to a running controller.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent session.Intent) error
}

type snapshotMsg session.Snapshot

type updatesClosedMsg struct{}

type dispatchResultMsg struct {
	intent session.Intent
	err    error
}

// Model is the Bubble Tea model for one practice session.
type Model struct {
	ctx     context.Context
	driver  Dispatcher
	updates <-chan session.Snapshot
	keys    KeyMap

	snap    session.Snapshot
	spinner spinner.Model
	summary viewport.Model

	width    int
	height   int
	lastErr  string
	quitting bool
}

// New builds a model that renders snapshots from updates and sends key
// presses to driver.
func New(ctx context.Context, driver Dispatcher, updates <-chan session.Snapshot) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ProcessingStyle

	return Model{
		ctx:     ctx,
		driver:  driver,
		updates: updates,
		keys:    DefaultKeyMap,
		snap:    session.Snapshot{State: fsm.Idle{}},
		spinner: s,
		summary: viewport.New(80, 12),
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.updates))
}

func waitForSnapshot(updates <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) dispatch(intent session.Intent) tea.Cmd {
	return func() tea.Msg {
		return dispatchResultMsg{intent: intent, err: m.driver.Dispatch(m.ctx, intent)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.summary.Width = max(msg.Width-4, 20)
		m.summary.Height = max(msg.Height-10, 4)
		return m, nil

	case snapshotMsg:
		prev := m.snap.State
		m.snap = session.Snapshot(msg)
		if m.snap.State != prev {
			m.lastErr = ""
		}
		if _, ok := m.snap.State.(fsm.Summary); ok {
			m.summary.SetContent(m.snap.Report())
			if _, was := prev.(fsm.Summary); !was {
				m.summary.GotoTop()
			}
		}
		return m, waitForSnapshot(m.updates)

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case dispatchResultMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Record):
		if intent, ok := recordIntent(m.snap.State); ok {
			return m, m.dispatch(intent)
		}
		return m, nil
	case key.Matches(msg, m.keys.Reset):
		return m, m.dispatch(session.IntentReset)
	case key.Matches(msg, m.keys.Copy):
		return m, m.dispatch(session.IntentCopy)
	case key.Matches(msg, m.keys.Share):
		return m, m.dispatch(session.IntentShare)
	}

	if _, ok := m.snap.State.(fsm.Summary); ok {
		var cmd tea.Cmd
		m.summary, cmd = m.summary.Update(msg)
		return m, cmd
	}
	return m, nil
}

// recordIntent maps the record key onto the action the current state offers.
func recordIntent(state fsm.State) (session.Intent, bool) {
	switch state.(type) {
	case fsm.Idle:
		return session.IntentStartStory, true
	case fsm.RecordingStory:
		return session.IntentStopStory, true
	case fsm.PresentingQuestion:
		return session.IntentStartAnswer, true
	case fsm.RecordingAnswer:
		return session.IntentStopAnswer, true
	case fsm.Failed:
		return session.IntentReset, true
	default:
		return "", false
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("recite"))
	b.WriteString("\n")
	b.WriteString(m.body())
	b.WriteString("\n\n")

	if m.snap.Copied {
		b.WriteString(SuccessStyle.Render("Copied!"))
		b.WriteString("\n")
	}
	if m.snap.Notice != "" {
		b.WriteString(WarningStyle.Render(m.snap.Notice))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(DimStyle.Render(m.lastErr))
		b.WriteString("\n")
	}
	b.WriteString(DimStyle.Render(m.help()))
	return b.String()
}

func (m Model) body() string {
	switch st := m.snap.State.(type) {
	case fsm.Idle:
		return "Read a story out loud, then answer a few questions about it."
	case fsm.RequestingPermission:
		return m.spinner.View() + " Waiting for the microphone…"
	case fsm.RecordingStory:
		return RecordingStyle.Render("● Recording your story…")
	case fsm.ProcessingStory:
		return m.spinner.View() + ProcessingStyle.Render(" Coming up with questions…")
	case fsm.PresentingQuestion:
		return m.question(st.Index, "")
	case fsm.RecordingAnswer:
		return m.question(st.Index, RecordingStyle.Render("● Recording your answer…"))
	case fsm.ProcessingAnswer:
		return m.question(st.Index, m.spinner.View()+ProcessingStyle.Render(" Listening to your answer…"))
	case fsm.Summary:
		return SuccessStyle.Render("All done!") + "\n\n" + BoxStyle.Render(m.summary.View())
	case fsm.Failed:
		return ErrorStyle.Render(st.Message)
	default:
		return fsm.Describe(st)
	}
}

func (m Model) question(index int, status string) string {
	text, _, total, ok := m.snap.Question()
	if !ok {
		return status
	}
	out := DimStyle.Render(fmt.Sprintf("Question %d of %d", index+1, total)) + "\n" + QuestionStyle.Render(text)
	if status != "" {
		out += "\n\n" + status
	}
	return out
}

func (m Model) help() string {
	var bindings []key.Binding
	switch m.snap.State.(type) {
	case fsm.Idle:
		bindings = append(bindings, withHelp(m.keys.Record, "read a story"))
	case fsm.RecordingStory, fsm.RecordingAnswer:
		bindings = append(bindings, withHelp(m.keys.Record, "stop"), m.keys.Reset)
	case fsm.PresentingQuestion:
		bindings = append(bindings, withHelp(m.keys.Record, "answer"), m.keys.Reset)
	case fsm.Summary:
		bindings = append(bindings, m.keys.Copy, m.keys.Share, m.keys.Reset)
	case fsm.Failed:
		bindings = append(bindings, withHelp(m.keys.Record, "try again"))
	default:
		bindings = append(bindings, m.keys.Reset)
	}
	bindings = append(bindings, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

func withHelp(b key.Binding, desc string) key.Binding {
	b.SetHelp(b.Help().Key, desc)
	return b
}
