package chat

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatbot-backend/internal/shared/server/middleware"
	"chatbot-backend/internal/shared/server/respond"
	"chatbot-backend/internal/shared/telemetry"
	"chatbot-backend/internal/shared/util"
)

const (
	defaultMaxUploadBytes = 10 << 20 // 10MB

	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = (eventsPongWait * 9) / 10
)

// HandlerOptions tunes the HTTP surface.
type HandlerOptions struct {
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Handler exposes sessions over HTTP.
type Handler struct {
	Sessions       *Registry
	maxUploadBytes int64
	upgrader       websocket.Upgrader
}

// NewHandler constructs a Handler.
func NewHandler(sessions *Registry, opts HandlerOptions) *Handler {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	origins := append([]string(nil), opts.AllowedOrigins...)
	return &Handler{
		Sessions:       sessions,
		maxUploadBytes: maxUpload,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, origins)
			},
		},
	}
}

// RegisterRoutes attaches chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.session)
	rg.POST("/messages", h.send)
	rg.POST("/documents", h.upload)
	rg.GET("/events", h.events)
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	IsTyping  bool      `json:"isTyping"`
}

type sendRequest struct {
	Text string `json:"text"`
}

type acceptedResponse struct {
	Accepted bool `json:"accepted"`
}

func (h *Handler) current(c *gin.Context) *Session {
	return h.Sessions.GetOrCreate(middleware.SessionIDFromContext(c))
}

func (h *Handler) session(c *gin.Context) {
	sess := h.current(c)
	snap := sess.Store().Snapshot()
	respond.OK(c, sessionResponse{
		SessionID: sess.ID(),
		Messages:  snap.Messages,
		IsTyping:  snap.IsTyping,
	})
}

func (h *Handler) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	if !h.current(c).Submit(req.Text) {
		respond.NoContent(c)
		return
	}
	respond.Accepted(c, acceptedResponse{Accepted: true})
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	declared := fileHeader.Header.Get("Content-Type")
	if !h.current(c).Ingest(fileHeader.Filename, declared, data) {
		respond.NoContent(c)
		return
	}
	respond.Accepted(c, acceptedResponse{Accepted: true})
}

// events streams a Snapshot on connect and after every change to the
// session. Client frames are read only to detect disconnects.
func (h *Handler) events(c *gin.Context) {
	sess := h.current(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		telemetry.Warn("events.upgrade_failed", map[string]any{
			"session":    util.ShortHash(sess.ID()),
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err,
		})
		return
	}
	defer conn.Close()

	updates, unsubscribe := sess.Store().Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()

	if err := writeSnapshot(conn, sess.Store().Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-updates:
			if err := writeSnapshot(conn, sess.Store().Snapshot()); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	return conn.WriteJSON(snap)
}

// checkOrigin accepts listed CORS origins and pages served from the same host.
// Clients that send no Origin are let through.
func checkOrigin(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if middleware.OriginAllowed(allowed, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
