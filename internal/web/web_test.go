package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatbot-backend/internal/chat"
	"chatbot-backend/internal/llm"
	"chatbot-backend/internal/shared/server/middleware"
)

func TestBubblesFollowSender(t *testing.T) {
	msgs := []chat.Message{
		{ID: 1, Sender: chat.SenderUser, Text: "Hello", Timestamp: "10:00"},
		{ID: 2, Sender: chat.SenderBot, Text: "Hi there!", Timestamp: "10:00"},
		{ID: 3, Sender: chat.SenderSystem, Text: "📄 1 PDF file uploaded: a.pdf", Timestamp: "10:01"},
	}

	got := Bubbles(msgs)
	if len(got) != 3 {
		t.Fatalf("expected 3 bubbles, got %d", len(got))
	}
	if got[0].Class != "user" || got[0].Avatar != "👤" {
		t.Fatalf("unexpected user bubble %+v", got[0])
	}
	if got[1].Class != "bot" || got[1].Avatar != "🤖" {
		t.Fatalf("unexpected bot bubble %+v", got[1])
	}
	if got[2].Class != "system" || got[2].Avatar != "" {
		t.Fatalf("unexpected system bubble %+v", got[2])
	}
}

func TestNewPageTyping(t *testing.T) {
	page := NewPage(chat.Snapshot{Messages: []chat.Message{}, IsTyping: true})
	if !page.IsTyping || page.TypingText != "Bot is typing..." {
		t.Fatalf("unexpected page %+v", page)
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *chat.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry := chat.NewRegistry(func(id string) *chat.Session {
		return chat.NewSession(id, chat.Deps{LLM: llm.PlaceholderClient{}})
	}, 0, nil)
	handler, err := NewHandler(registry)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	router := gin.New()
	router.Use(middleware.Session(false))
	handler.RegisterRoutes(router)
	return router, registry
}

func TestIndexRendersConversation(t *testing.T) {
	router, registry := newTestRouter(t)
	id := uuid.NewString()
	sess := registry.GetOrCreate(id)
	sess.Store().Append(chat.SenderUser, "<script>alert(1)</script>")
	sess.Store().AppendUserTurn("still waiting")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.SessionHeader, id)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("message text must be escaped")
	}
	if !strings.Contains(body, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatalf("expected escaped message text in page")
	}
	if !strings.Contains(body, `id="typing"`) {
		t.Fatalf("expected typing indicator")
	}
	if !strings.Contains(body, `accept="application/pdf"`) {
		t.Fatalf("expected pdf file picker")
	}
	if !strings.Contains(body, "/api/v1/events") {
		t.Fatalf("expected events feed wiring")
	}
	if !strings.Contains(body, `id="notice"`) || !strings.Contains(body, "res.ok") {
		t.Fatalf("expected failed sends to surface a notice")
	}
}

func TestIndexWithoutTyping(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), `id="typing"`) {
		t.Fatalf("typing indicator should be hidden")
	}
	if resp.Header().Get("Set-Cookie") == "" {
		t.Fatalf("expected a session cookie for a new visitor")
	}
}
