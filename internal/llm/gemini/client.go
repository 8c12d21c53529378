package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"chatbot-backend/internal/llm"
)

const (
	// DefaultBaseURL is the public Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// Scope authorizes Generative Language calls made with OAuth credentials.
	Scope = "https://www.googleapis.com/auth/generative-language"

	apiKeyHeader = "x-goog-api-key"
)

// Options configures a Client. Either APIKey or HTTPClient carrying its own
// credentials must be provided.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements llm.Client against the generateContent endpoint.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewClient constructs a Gemini client.
func NewClient(opts Options) (*Client, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" && opts.HTTPClient == nil {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid GEMINI_BASE_URL: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout > 0 {
		copied := *httpClient
		copied.Timeout = opts.Timeout
		httpClient = &copied
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		endpoint:   base + "/models/" + url.PathEscape(model) + ":generateContent",
		httpClient: httpClient,
	}, nil
}

// NewTokenSourceHTTPClient returns an HTTP client that authorizes requests
// with tokens from ts.
func NewTokenSourceHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}

// DefaultCredentialsHTTPClient resolves Google Application Default
// Credentials scoped for the Generative Language API.
func DefaultCredentialsHTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := google.DefaultTokenSource(ctx, Scope)
	if err != nil {
		return nil, fmt.Errorf("google default credentials: %w", err)
	}
	return NewTokenSourceHTTPClient(ctx, ts), nil
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GenerateText sends prompt as a single user turn. Prior turns are never
// included.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	text := prompt
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: &text}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("gemini request timeout: %w", err)
		}
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading gemini response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Well-formed JSON of the wrong shape is a bad answer, not a transport failure.
		if json.Valid(body) {
			return "", fmt.Errorf("gemini status %d: %v: %w", resp.StatusCode, err, llm.ErrMalformedResponse)
		}
		return "", fmt.Errorf("gemini response parse (status %d): %w", resp.StatusCode, err)
	}
	return replyText(resp.StatusCode, parsed)
}

// replyText reads candidates[0].content.parts[0].text.
func replyText(status int, parsed generateResponse) (string, error) {
	if len(parsed.Candidates) > 0 {
		first := parsed.Candidates[0]
		if first.Content != nil && len(first.Content.Parts) > 0 && first.Content.Parts[0].Text != nil {
			return *first.Content.Parts[0].Text, nil
		}
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini status %d: %s (%s): %w", status, parsed.Error.Message, parsed.Error.Status, llm.ErrMalformedResponse)
	}
	return "", fmt.Errorf("gemini status %d: %w", status, llm.ErrMalformedResponse)
}

var _ llm.Client = (*Client)(nil)
