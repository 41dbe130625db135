package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/raphaelgruber/medilink-console/internal/models"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

const (
	demoTickInterval = 100 * time.Millisecond
	// defaultLogLines is how many log entries are shown before the first
	// window size is known.
	defaultLogLines = 20
)

// sessionEventMsg carries one session event into the model.
type sessionEventMsg session.Event

// feedClosedMsg reports that the session stopped publishing.
type feedClosedMsg struct{}

// dispatchedMsg carries the note produced by a dispatched input line.
type dispatchedMsg struct {
	note string
}

// tickMsg advances the demo progress bar.
type tickMsg time.Time

// consoleModel is the bubbletea model for the interactive console.
type consoleModel struct {
	ctx      context.Context
	sess     *session.Session
	events   <-chan session.Event
	input    textinput.Model
	progress progress.Model
	theme    Theme

	messages []models.Message
	toasts   []session.Toast
	state    session.State
	note     string

	demoOnStart bool
	demoStarted time.Time
	demoTotal   time.Duration

	height   int
	quitting bool
}

// newConsoleModel creates the console model. With demoOnStart the demo is
// started as soon as the program runs.
func newConsoleModel(ctx context.Context, sess *session.Session, events <-chan session.Event, demoOnStart bool, demoTotal time.Duration) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "Describe the emergency, or /help"
	ti.CharLimit = 500
	ti.SetWidth(72)
	ti.Focus()

	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return consoleModel{
		ctx:         ctx,
		sess:        sess,
		events:      events,
		input:       ti,
		progress:    prog,
		theme:       defaultTheme,
		messages:    sess.Messages(),
		toasts:      sess.Toasts(),
		state:       sess.State(),
		demoOnStart: demoOnStart,
		demoTotal:   demoTotal,
	}
}

// Init starts listening for session events.
func (m consoleModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.events), textinput.Blink}
	if m.demoOnStart {
		cmds = append(cmds, m.dispatchCmd(input{kind: inputDemo}))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model.
func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.SetWidth(max(msg.Width-4, 10))
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			in := parseInput(m.input.Value())
			m.input.Reset()
			switch in.kind {
			case inputQuit:
				m.quitting = true
				return m, tea.Quit
			case inputEmpty:
				return m, nil
			}
			m.note = ""
			return m, m.dispatchCmd(in)
		}

	case sessionEventMsg:
		cmd := m.apply(session.Event(msg))
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case feedClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case dispatchedMsg:
		m.note = msg.note
		return m, nil

	case tickMsg:
		if m.demoStarted.IsZero() {
			return m, nil
		}
		return m, tickCmd()

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply folds one session event into the model.
func (m *consoleModel) apply(ev session.Event) tea.Cmd {
	switch ev.Kind {
	case session.EventMessage:
		switch {
		case ev.Message == nil || ev.Index < len(m.messages):
			// Already picked up by a resync.
		case ev.Index == len(m.messages):
			m.messages = append(m.messages, *ev.Message)
		default:
			m.messages = m.sess.Messages()
		}
	case session.EventReset:
		m.messages = nil
	case session.EventToast:
		if ev.Toast != nil {
			m.toasts = append(m.toasts, *ev.Toast)
		}
	case session.EventToastExpired:
		for i, t := range m.toasts {
			if t.ID == ev.ToastID {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
	case session.EventState:
		if ev.State == nil {
			return nil
		}
		m.state = *ev.State
		switch {
		case m.state.DemoRunning && m.demoStarted.IsZero():
			m.demoStarted = time.Now()
			return tickCmd()
		case !m.state.DemoRunning:
			m.demoStarted = time.Time{}
		}
	}
	return nil
}

// View renders the console.
func (m consoleModel) View() tea.View {
	v := tea.NewView(m.renderContent())
	v.AltScreen = true
	return v
}

// renderContent builds the display string.
func (m consoleModel) renderContent() string {
	if m.quitting {
		return m.theme.hintStyle().Render("Session closed.") + "\n"
	}

	var b strings.Builder
	b.WriteString(m.theme.headerStyle().Render("MediLink Console"))
	b.WriteString(" ")
	b.WriteString(m.theme.statusStyle().Render(formatState(m.state)))
	b.WriteString("\n")
	b.WriteString(m.theme.hintStyle().Render(formatCapacity(m.state.Capacity)))
	b.WriteString("\n\n")

	for _, msg := range m.visibleMessages() {
		label := m.theme.roleStyle(msg.Role).Render(roleLabel(msg.Role) + ":")
		b.WriteString(label + " " + formatMessage(msg) + "\n")
	}

	if !m.demoStarted.IsZero() {
		b.WriteString("\n")
		b.WriteString(m.theme.statusStyle().Render("[demo]") + " ")
		b.WriteString(m.progress.ViewAs(m.demoProgress()))
		b.WriteString("\n")
	}

	if len(m.toasts) > 0 {
		b.WriteString("\n")
		for _, t := range m.toasts {
			b.WriteString(m.theme.toastStyle(t.Kind).Render(t.Text))
			b.WriteString("\n")
		}
	}

	if m.note != "" {
		b.WriteString("\n" + m.theme.hintStyle().Render(m.note) + "\n")
	}

	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(m.theme.hintStyle().Render("Enter to send, /help for commands, Esc to quit"))
	return b.String()
}

// visibleMessages returns the tail of the log that fits the window.
func (m consoleModel) visibleMessages() []models.Message {
	limit := defaultLogLines
	if m.height > 0 {
		// Header, input and hint lines plus room for toasts.
		limit = max(m.height-10-3*len(m.toasts), 3)
	}
	if len(m.messages) <= limit {
		return m.messages
	}
	return m.messages[len(m.messages)-limit:]
}

// demoProgress estimates how far the running demo is from its paced duration.
func (m consoleModel) demoProgress() float64 {
	if m.demoTotal <= 0 {
		return 0
	}
	pct := float64(time.Since(m.demoStarted)) / float64(m.demoTotal)
	return min(pct, 0.99)
}

// dispatchCmd runs an input line off the update loop.
func (m consoleModel) dispatchCmd(in input) tea.Cmd {
	return func() tea.Msg {
		_, note := dispatch(m.ctx, m.sess, in)
		return dispatchedMsg{note: note}
	}
}

// waitForEvent returns a command that delivers the next session event.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return feedClosedMsg{}
		}
		return sessionEventMsg(ev)
	}
}

// tickCmd returns a command that sends a tick after the demo tick interval.
func tickCmd() tea.Cmd {
	return tea.Tick(demoTickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runConsole runs the interactive console until the user quits or ctx ends.
func runConsole(ctx context.Context, sess *session.Session, demoOnStart bool) error {
	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	demoTotal := sessionOptions(cfg, logger).Pacing.Total()
	model := newConsoleModel(ctx, sess, events, demoOnStart, demoTotal)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
			return nil
		}
		return fmt.Errorf("console UI error: %w", err)
	}
	return nil
}
