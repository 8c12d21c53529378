package llm

import (
	"context"
	"errors"
	"time"
)

// Fixed reply texts shown in place of a model answer.
const (
	FallbackUnintelligible = "Sorry, I couldn't understand that."
	FallbackUnavailable    = "Error fetching response from AI."
)

var (
	// ErrMalformedResponse marks a reply body that parsed but did not carry
	// text at candidates[0].content.parts[0].text.
	ErrMalformedResponse = errors.New("llm response missing reply text")
	// ErrNotConfigured is returned by the placeholder client.
	ErrNotConfigured = errors.New("llm provider not configured")
)

// Client sends one stateless prompt to a generative-language provider.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Outcome classifies how a reply was obtained.
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	OutcomeMalformed
	OutcomeTransportFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Reply is the text to show for a prompt, with the outcome that produced it.
type Reply struct {
	Text     string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Ask sends prompt once and always returns displayable text. Malformed
// replies and transport failures are mapped to the fixed fallback texts;
// nothing is retried.
func Ask(ctx context.Context, client Client, prompt string) Reply {
	start := time.Now()
	text, err := client.GenerateText(ctx, prompt)
	reply := Reply{Text: text, Outcome: OutcomeAnswered, Err: err, Duration: time.Since(start)}
	switch {
	case err == nil:
	case errors.Is(err, ErrMalformedResponse):
		reply.Text = FallbackUnintelligible
		reply.Outcome = OutcomeMalformed
	default:
		reply.Text = FallbackUnavailable
		reply.Outcome = OutcomeTransportFailure
	}
	return reply
}

// PlaceholderClient stands in when no provider credential is configured.
type PlaceholderClient struct{}

// GenerateText returns ErrNotConfigured.
func (PlaceholderClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}

var _ Client = PlaceholderClient{}
