package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatbot-backend/internal/extract"
)

var pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

// scriptedLLM answers every prompt with the same reply and records prompts.
type scriptedLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	gate    chan struct{}
	prompts []string
}

func (s *scriptedLLM) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *scriptedLLM) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

type panicLLM struct{}

func (panicLLM) GenerateText(context.Context, string) (string, error) {
	panic("client bug")
}

type staticSource struct {
	pages [][]string
}

func (s staticSource) NumPage() int { return len(s.pages) }

func (s staticSource) PageFragments(page int) ([]string, error) {
	return s.pages[page-1], nil
}

// pageParser returns pages keyed by the first byte after the PDF header so
// one parser can serve several distinct uploads.
type pageParser struct {
	mu    sync.Mutex
	pages [][]string
	err   error
	gates map[string]chan struct{}
	calls int
}

func (p *pageParser) Open(data []byte) (extract.PageSource, error) {
	p.mu.Lock()
	p.calls++
	gate := p.gates[string(data)]
	err := p.err
	pages := p.pages
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if pages == nil {
		pages = [][]string{{string(data[len(pdfBytes):])}}
	}
	return staticSource{pages: pages}, nil
}

var errBrokenPDF = errors.New("xref table missing")

func fixedClock(t time.Time) func() time.Time {
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return t
	}
}

func pdfWithBody(body string) []byte {
	out := make([]byte, 0, len(pdfBytes)+len(body))
	out = append(out, pdfBytes...)
	return append(out, body...)
}
