package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionIDKey     = "sessionId"
	sessionMintedKey = "sessionMinted"

	// SessionHeader carries the session identifier on API calls.
	SessionHeader = "X-Session-Id"
	// SessionCookie carries the session identifier for browser clients.
	SessionCookie = "chat_session"

	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// Session resolves the caller's conversation from the X-Session-Id header or
// the chat_session cookie. Callers without a valid identifier get a new one,
// set as a cookie and echoed on the response header.
func Session(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		id := normalizeSessionID(c.GetHeader(SessionHeader))
		fromCookie := false
		if id == "" {
			if raw, err := c.Cookie(SessionCookie); err == nil {
				id = normalizeSessionID(raw)
				fromCookie = id != ""
			}
		}
		minted := id == ""
		if minted {
			id = uuid.NewString()
		}
		if !fromCookie {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, sessionCookieMaxAge, "/", "", secureCookie, true)
		}

		c.Set(sessionIDKey, id)
		c.Set(sessionMintedKey, minted)
		c.Writer.Header().Set(SessionHeader, id)
		c.Next()
	}
}

// SessionIDFromContext returns the identifier stored by Session.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// SessionMinted reports whether Session generated the identifier on this
// request because the caller presented none.
func SessionMinted(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(sessionMintedKey)
}

func normalizeSessionID(raw string) string {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return parsed.String()
}
