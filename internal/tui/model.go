// Package tui is a terminal front end for a chat session.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gabriel-vasile/mimetype"

	"chatbot-backend/internal/chat"
)

const (
	uploadCommand = "/upload"
	quitCommand   = "/quit"

	headerHeight = 1
	footerHeight = 4

	typingText = "Bot is typing..."
)

// storeChangedMsg signals that the session's Store has new state.
type storeChangedMsg struct{}

// uploadResultMsg reports how a /upload command was handled.
type uploadResultMsg struct {
	name     string
	mimeType string
	accepted bool
	err      error
}

// Model renders one chat session.
type Model struct {
	session     *chat.Session
	updates     <-chan struct{}
	unsubscribe func()

	viewport viewport.Model
	input    textinput.Model
	snap     chat.Snapshot
	status   string
	width    int
	height   int
}

// New builds a model bound to session. Call Close when the program exits.
func New(session *chat.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask something, or /upload <file.pdf>"
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	updates, unsubscribe := session.Store().Subscribe()

	m := Model{
		session:     session,
		updates:     updates,
		unsubscribe: unsubscribe,
		viewport:    vp,
		input:       ti,
		width:       80,
		height:      20 + headerHeight + footerHeight,
	}
	m.refresh()
	return m
}

// Close stops listening to the session.
func (m Model) Close() {
	m.unsubscribe()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.updates))
}

func waitForChange(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(1, msg.Width)
		m.viewport.Height = max(1, msg.Height-headerHeight-footerHeight)
		m.input.Width = max(10, msg.Width-4)
		m.refresh()
		return m, nil

	case storeChangedMsg:
		m.refresh()
		return m, waitForChange(m.updates)

	case uploadResultMsg:
		m.status = uploadStatus(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	trimmed := strings.TrimSpace(value)
	m.input.Reset()

	switch {
	case trimmed == quitCommand:
		return m, tea.Quit
	case trimmed == uploadCommand || strings.HasPrefix(trimmed, uploadCommand+" "):
		path := strings.TrimSpace(strings.TrimPrefix(trimmed, uploadCommand))
		if path == "" {
			m.status = "usage: /upload <path-to-pdf>"
			return m, nil
		}
		m.status = "reading " + filepath.Base(path) + "..."
		return m, uploadCmd(m.session, path)
	}

	m.status = ""
	m.session.Submit(value)
	return m, nil
}

// uploadCmd reads path, detects its type from content and hands it to the
// session. The detected type plays the role of the declared type.
func uploadCmd(session *chat.Session, path string) tea.Cmd {
	return func() tea.Msg {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return uploadResultMsg{name: name, err: err}
		}
		mt := mimetype.Detect(data)
		accepted := session.Ingest(name, mt.String(), data)
		return uploadResultMsg{name: name, mimeType: mt.String(), accepted: accepted}
	}
}

func uploadStatus(msg uploadResultMsg) string {
	switch {
	case msg.err != nil:
		return fmt.Sprintf("could not read %s: %v", msg.name, msg.err)
	case !msg.accepted:
		return fmt.Sprintf("ignored %s: not a PDF (%s)", msg.name, msg.mimeType)
	default:
		return "processing " + msg.name + "..."
	}
}

func (m *Model) refresh() {
	m.snap = m.session.Store().Snapshot()
	m.viewport.SetContent(renderLog(m.snap, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	header := headerStyle.Width(m.width).Render("PDF Chat")
	status := statusStyle.Render(m.status)
	footer := inputStyle.Width(m.width).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), status, footer)
}

// renderLog draws every message as a bubble, followed by the typing line.
func renderLog(snap chat.Snapshot, width int) string {
	if width < 20 {
		width = 20
	}
	maxBubble := width * 3 / 4

	var b strings.Builder
	for _, msg := range snap.Messages {
		b.WriteString(renderMessage(msg, width, maxBubble))
		b.WriteString("\n")
	}
	if snap.IsTyping {
		b.WriteString(typingStyle.Render(botAvatar + " " + typingText))
		b.WriteString("\n")
	}
	return b.String()
}

func renderMessage(msg chat.Message, width, maxBubble int) string {
	style := bubbleStyle(msg.Sender)
	text := msg.Text
	if lipgloss.Width(text) > maxBubble {
		style = style.Width(maxBubble)
	}
	bubble := style.Render(text)
	stamp := timeStyle.Render(msg.Timestamp)

	switch msg.Sender {
	case chat.SenderUser:
		line := lipgloss.JoinHorizontal(lipgloss.Bottom, stamp, " ", bubble, " ", userAvatar)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, line)
	case chat.SenderBot:
		return lipgloss.JoinHorizontal(lipgloss.Bottom, botAvatar, " ", bubble, " ", stamp)
	default:
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, bubble)
	}
}
