package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"chatbot-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsStandardError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	useLogBuffer(t, &logs)

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "internal" {
		t.Fatalf("expected code internal, got %q", payload.Error.Code)
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"msg":"panic"`)) {
		t.Fatalf("expected panic log, got %s", logs.String())
	}
}

func useLogBuffer(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	telemetry.SetOutput(buf)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })
}
