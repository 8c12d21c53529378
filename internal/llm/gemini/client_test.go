package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"chatbot-backend/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{APIKey: "test-key", Model: "gemini-2.0-flash", BaseURL: server.URL + "/v1beta/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGenerateText_RequestShape(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("key") != "" {
			t.Errorf("api key must not be sent in the query string")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hello there!"}],"role":"model"}}]}`)
	})

	text, err := client.GenerateText(context.Background(), "line one\nline two")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Hello there!" {
		t.Fatalf("unexpected reply %q", text)
	}

	contents, ok := got["contents"].([]any)
	if !ok || len(contents) != 1 {
		t.Fatalf("expected exactly one content turn, got %v", got["contents"])
	}
	turn := contents[0].(map[string]any)
	if turn["role"] != "user" {
		t.Fatalf("expected user role, got %v", turn["role"])
	}
	parts := turn["parts"].([]any)
	if len(parts) != 1 || parts[0].(map[string]any)["text"] != "line one\nline two" {
		t.Fatalf("unexpected parts %v", parts)
	}
}

func TestGenerateText_EmptyCandidatesIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[]}`)
	})

	_, err := client.GenerateText(context.Background(), "hi")
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if reply := llm.Ask(context.Background(), client, "hi"); reply.Text != "Sorry, I couldn't understand that." {
		t.Fatalf("unexpected fallback %q", reply.Text)
	}
}

func TestGenerateText_MissingPathLevels(t *testing.T) {
	bodies := map[string]string{
		"no candidates key": `{}`,
		"null body":         `null`,
		"no content":        `{"candidates":[{"finishReason":"SAFETY"}]}`,
		"no parts":          `{"candidates":[{"content":{"parts":[]}}]}`,
		"part without text": `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`,
		"numeric text":      `{"candidates":[{"content":{"parts":[{"text":42}]}}]}`,
		"candidates object": `{"candidates":{}}`,
		"content string":    `{"candidates":[{"content":"oops"}]}`,
		"top-level array":   `[]`,
		"top-level string":  `"hello"`,
	}
	for name, body := range bodies {
		body := body
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			})
			if _, err := client.GenerateText(context.Background(), "hi"); !errors.Is(err, llm.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestGenerateText_EmptyTextIsAnAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`)
	})
	text, err := client.GenerateText(context.Background(), "hi")
	if err != nil || text != "" {
		t.Fatalf("expected empty answer without error, got %q, %v", text, err)
	}
}

func TestGenerateText_ErrorStatusWithJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := client.GenerateText(context.Background(), "hi")
	if !errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("error should carry the provider message: %v", err)
	}
}

func TestGenerateText_NonJSONBodyIsTransportFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := client.GenerateText(context.Background(), "hi")
	if err == nil || errors.Is(err, llm.ErrMalformedResponse) {
		t.Fatalf("expected a transport error, got %v", err)
	}
	if reply := llm.Ask(context.Background(), client, "hi"); reply.Text != "Error fetching response from AI." {
		t.Fatalf("unexpected fallback %q", reply.Text)
	}
}

func TestGenerateText_UnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(Options{APIKey: "k", Model: "m", BaseURL: url})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	reply := llm.Ask(context.Background(), client, "hi")
	if reply.Outcome != llm.OutcomeTransportFailure || reply.Text != "Error fetching response from AI." {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestGenerateText_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client, err := NewClient(Options{APIKey: "k", Model: "m", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GenerateText(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestGenerateText_TokenSourceCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if r.Header.Get("x-goog-api-key") != "" {
			t.Errorf("api key header should be absent with oauth credentials")
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer server.Close()

	httpClient := NewTokenSourceHTTPClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-123"}))
	client, err := NewClient(Options{Model: "gemini-2.0-flash", BaseURL: server.URL, HTTPClient: httpClient})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if text, err := client.GenerateText(context.Background(), "hi"); err != nil || text != "ok" {
		t.Fatalf("unexpected result %q, %v", text, err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatal("expected error without model")
	}
	if _, err := NewClient(Options{Model: "m"}); err == nil {
		t.Fatal("expected error without credentials")
	}
	client, err := NewClient(Options{APIKey: "k", Model: "gemini-2.0-flash"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.endpoint != DefaultBaseURL+"/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected endpoint %s", client.endpoint)
	}
}
