package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Asker answers a question, streaming reply fragments to onToken.
type Asker interface {
	Ask(ctx context.Context, question string, onToken func(string)) (string, error)
}

// message is one rendered conversation entry.
type message struct {
	role    string // "user" or "assistant"
	content string
}

// Events delivered from the streaming goroutine. Each carries the
// generation of the stream that produced it, so events from a
// cancelled stream can be told apart from the live one.
type (
	tokenMsg struct {
		gen   int
		token string
	}
	doneMsg   struct{ gen int }
	streamErr struct {
		gen int
		err error
	}
	tickMsg time.Time
)

// thinkingFrames animate the waiting indicator.
var thinkingFrames = []string{"One sec", "One sec.", "One sec..", "One sec..."}

const tickInterval = 400 * time.Millisecond

// Model is the bubbletea chat model.
type Model struct {
	asker Asker

	viewport viewport.Model
	textarea textarea.Model
	renderer *glamour.TermRenderer

	messages []message
	current  strings.Builder // assistant reply being streamed

	waiting bool
	frame   int
	gen     int // current stream generation; stale events are dropped
	err     error

	events chan tea.Msg
	cancel context.CancelFunc

	width  int
	height int
	ready  bool
}

// New creates the chat model.
func New(asker Asker) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your codebase..."
	ta.Prompt = "> "
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.Focus()

	return Model{
		asker:    asker,
		textarea: ta,
		events:   make(chan tea.Msg, 64),
	}
}

// Run starts the chat UI and blocks until the user quits.
func Run(asker Asker) error {
	p := tea.NewProgram(New(asker), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	// One persistent event listener; it re-arms itself on every event.
	return tea.Batch(textarea.Blink, m.awaitEvent())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		if !m.ready {
			m.ready = true
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(m.viewport.Width),
			)
			if err == nil {
				m.renderer = renderer
			}
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			m.stopStreaming()
			return m, tea.Quit

		case "esc":
			if m.waiting {
				m.stopStreaming()
				m.gen++ // events still in flight from this stream are stale
				m.finishAssistantMessage()
				return m, nil
			}
			return m, tea.Quit

		case "ctrl+l":
			if !m.waiting {
				m.messages = nil
				m.err = nil
				m.refreshViewport()
			}
			return m, nil

		case "enter":
			if m.waiting {
				return m, nil
			}
			question := strings.TrimSpace(m.textarea.Value())
			if question == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.err = nil
			m.messages = append(m.messages, message{role: "user", content: question})
			m.current.Reset()
			m.waiting = true
			m.frame = 0
			m.gen++
			m.refreshViewport()
			return m, tea.Batch(m.startStreaming(question), m.tick())
		}

	case tokenMsg:
		if msg.gen == m.gen {
			m.current.WriteString(msg.token)
			m.refreshViewport()
		}
		cmds = append(cmds, m.awaitEvent())

	case doneMsg:
		if msg.gen == m.gen {
			m.finishAssistantMessage()
		}
		cmds = append(cmds, m.awaitEvent())

	case streamErr:
		if msg.gen == m.gen {
			m.waiting = false
			m.err = msg.err
			m.current.Reset()
			m.refreshViewport()
		}
		cmds = append(cmds, m.awaitEvent())

	case tickMsg:
		if m.waiting {
			m.frame = (m.frame + 1) % len(thinkingFrames)
			m.refreshViewport()
			cmds = append(cmds, m.tick())
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("charlie"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(inputBorderStyle.Width(m.width - 2).Render(m.textarea.View()))
	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render("enter send · esc cancel · ctrl+c quit · ctrl+l clear"))
	return b.String()
}

// layout sizes the viewport and textarea to the terminal.
func (m *Model) layout() {
	inputHeight := m.textarea.Height() + 2 // border
	m.viewport.Width = m.width
	m.viewport.Height = m.height - inputHeight - 3 // title + status
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.textarea.SetWidth(m.width - 4)
}

// startStreaming launches the Ask call in a goroutine; tokens and
// completion arrive as events.
func (m *Model) startStreaming(question string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	events := m.events
	asker := m.asker
	gen := m.gen

	return func() tea.Msg {
		go func() {
			_, err := asker.Ask(ctx, question, func(token string) {
				events <- tokenMsg{gen: gen, token: token}
			})
			if err != nil && ctx.Err() == nil {
				events <- streamErr{gen: gen, err: err}
				return
			}
			events <- doneMsg{gen: gen}
		}()
		return nil
	}
}

// awaitEvent delivers the next streaming event to Update.
func (m *Model) awaitEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) stopStreaming() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// finishAssistantMessage commits the streamed reply to the transcript.
func (m *Model) finishAssistantMessage() {
	m.waiting = false
	reply := strings.TrimSpace(m.current.String())
	m.current.Reset()
	if reply != "" {
		m.messages = append(m.messages, message{role: "assistant", content: reply})
	}
	m.refreshViewport()
}

// refreshViewport re-renders the transcript and pins to the bottom.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// renderTranscript renders all messages plus any in-flight reply.
func (m *Model) renderTranscript() string {
	var b strings.Builder

	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.waiting {
		if partial := m.current.String(); partial != "" {
			b.WriteString(assistantPrefixStyle.Render("charlie"))
			b.WriteString("\n")
			b.WriteString(partial)
			b.WriteString("\n")
		} else {
			b.WriteString(thinkingStyle.Render(thinkingFrames[m.frame]))
			b.WriteString("\n")
		}
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	return b.String()
}

// renderMessage renders one transcript entry. Assistant replies go
// through glamour so markdown and code blocks read well.
func (m *Model) renderMessage(msg message) string {
	var b strings.Builder

	switch msg.role {
	case "user":
		b.WriteString(userPrefixStyle.Render("you"))
		b.WriteString("\n")
		b.WriteString(msg.content)
		b.WriteString("\n")
	default:
		b.WriteString(assistantPrefixStyle.Render("charlie"))
		b.WriteString("\n")
		b.WriteString(m.renderMarkdown(msg.content))
	}

	return b.String()
}

// renderMarkdown renders assistant markdown, falling back to raw text.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}
