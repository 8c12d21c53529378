package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatbot-backend/internal/chat"
	"chatbot-backend/internal/shared/server/middleware"
)

const (
	pageTitle  = "PDF Chat"
	typingText = "Bot is typing..."
	indexPage  = "index.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var avatars = map[string]string{
	string(chat.SenderUser): "👤",
	string(chat.SenderBot):  "🤖",
}

// Bubble is the view model of one rendered message.
type Bubble struct {
	ID        int64
	Class     string
	Avatar    string
	Text      string
	Timestamp string
}

// Page is the data passed to the index template.
type Page struct {
	Title      string
	Bubbles    []Bubble
	IsTyping   bool
	TypingText string
	BotAvatar  string
	Avatars    map[string]string
}

// Bubbles maps messages to bubbles in log order. Styling is keyed by sender.
func Bubbles(msgs []chat.Message) []Bubble {
	out := make([]Bubble, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Bubble{
			ID:        m.ID,
			Class:     string(m.Sender),
			Avatar:    avatars[string(m.Sender)],
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	return out
}

// NewPage builds the template data for a snapshot.
func NewPage(snap chat.Snapshot) Page {
	return Page{
		Title:      pageTitle,
		Bubbles:    Bubbles(snap.Messages),
		IsTyping:   snap.IsTyping,
		TypingText: typingText,
		BotAvatar:  avatars[string(chat.SenderBot)],
		Avatars:    avatars,
	}
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// Handler serves the chat page.
type Handler struct {
	Sessions *chat.Registry
	tmpl     *template.Template
}

// NewHandler constructs a Handler.
func NewHandler(sessions *chat.Registry) (*Handler, error) {
	tmpl, err := Templates()
	if err != nil {
		return nil, err
	}
	return &Handler{Sessions: sessions, tmpl: tmpl}, nil
}

// RegisterRoutes installs the templates on r and mounts the page at /.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(h.tmpl)
	r.GET("/", h.index)
}

func (h *Handler) index(c *gin.Context) {
	sess := h.Sessions.GetOrCreate(middleware.SessionIDFromContext(c))
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, indexPage, NewPage(sess.Store().Snapshot()))
}
