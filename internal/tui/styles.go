package tui

import (
	"github.com/charmbracelet/lipgloss"

	"chatbot-backend/internal/chat"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 1)

	userBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 1)

	botBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111827")).
			Background(lipgloss.Color("#E5E7EB")).
			Padding(0, 1)

	systemBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#92400E")).
			Italic(true)

	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	typingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	inputStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color("#D1D5DB"))
)

const (
	userAvatar = "👤"
	botAvatar  = "🤖"
)

func bubbleStyle(sender chat.Sender) lipgloss.Style {
	switch sender {
	case chat.SenderUser:
		return userBubble
	case chat.SenderBot:
		return botBubble
	default:
		return systemBubble
	}
}
