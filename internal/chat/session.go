package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatbot-backend/internal/extract"
	"chatbot-backend/internal/llm"
	"chatbot-backend/internal/shared/metrics"
	"chatbot-backend/internal/shared/telemetry"
	"chatbot-backend/internal/shared/util"
)

// UploadNoticeFormat is the system message appended after a PDF is ingested.
const UploadNoticeFormat = "📄 1 PDF file uploaded: %s"

// Deps are the collaborators a Session talks to.
type Deps struct {
	LLM    llm.Client
	Parser extract.Parser
	Now    func() time.Time
}

// Session owns the state of one conversation: its Store and the text of the
// most recently uploaded document. Sends and ingestions run in the
// background and are never cancelled once started.
type Session struct {
	id     string
	store  *Store
	llm    llm.Client
	parser extract.Parser
	ctx    context.Context

	docMu      sync.RWMutex
	document   string
	uploadSeq  uint64
	appliedSeq uint64

	inflight sync.WaitGroup
	active   atomic.Int32
}

// NewSession builds an empty session.
func NewSession(id string, deps Deps) *Session {
	client := deps.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	parser := deps.Parser
	if parser == nil {
		parser = extract.PDFParser{}
	}
	return &Session{
		id:     id,
		store:  NewStore(deps.Now),
		llm:    client,
		parser: parser,
		ctx:    context.Background(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store returns the session's conversation log.
func (s *Session) Store() *Store { return s.store }

// DocumentText returns the text of the current document, or "".
func (s *Session) DocumentText() string {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	return s.document
}

// Busy reports whether a send or ingestion is still running.
func (s *Session) Busy() bool {
	return s.active.Load() > 0
}

// Watched reports whether any event stream is subscribed to the transcript.
func (s *Session) Watched() bool {
	return s.store.Subscribers() > 0
}

// Wait blocks until every started send and ingestion has settled.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Submit appends input as a user message and requests a reply in the
// background. Empty or whitespace-only input is ignored and false is
// returned. Overlapping submissions each run to completion independently.
func (s *Session) Submit(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	prompt := llm.ComposePrompt(s.DocumentText(), input)
	s.store.AppendUserTurn(input)
	s.start()
	go s.resolve(prompt)
	return true
}

func (s *Session) resolve(prompt string) {
	defer s.finish()

	reply := llm.Reply{Text: llm.FallbackUnavailable, Outcome: llm.OutcomeTransportFailure}
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				reply.Err = fmt.Errorf("llm client panic: %v", rec)
			}
		}()
		metrics.IncInferenceRequests()
		reply = llm.Ask(s.ctx, s.llm, prompt)
	}()
	metrics.ObserveInferenceDurationMs(float64(reply.Duration.Microseconds()) / 1000.0)

	fields := map[string]any{
		"session":     util.ShortHash(s.id),
		"outcome":     reply.Outcome.String(),
		"duration_ms": float64(reply.Duration.Microseconds()) / 1000.0,
		"prompt_len":  len(prompt),
	}
	switch reply.Outcome {
	case llm.OutcomeMalformed:
		metrics.IncInferenceMalformed()
		fields["error"] = reply.Err
		telemetry.Warn("inference.malformed", fields)
	case llm.OutcomeTransportFailure:
		metrics.IncInferenceFailed()
		fields["error"] = reply.Err
		telemetry.Error("inference.failed", fields)
	default:
		telemetry.Info("inference.completed", fields)
	}

	s.store.AppendBotTurn(reply.Text)
}

// Ingest accepts an uploaded file. A declared type other than PDF is ignored
// and false is returned. PDFs are parsed in the background; on success the
// document text is replaced and a system notice naming the file is appended.
// Parse failures are logged and leave the session unchanged.
func (s *Session) Ingest(fileName, mimeType string, data []byte) bool {
	if !extract.IsPDF(mimeType) {
		metrics.IncIngestIgnored()
		telemetry.Debug("ingest.ignored", map[string]any{
			"session":   util.ShortHash(s.id),
			"mime_type": mimeType,
		})
		return false
	}
	name := util.DisplayFileName(fileName)

	s.docMu.Lock()
	s.uploadSeq++
	seq := s.uploadSeq
	s.docMu.Unlock()

	s.start()
	go s.ingest(seq, name, data)
	return true
}

func (s *Session) ingest(seq uint64, name string, data []byte) {
	defer s.finish()

	fields := map[string]any{
		"session":    util.ShortHash(s.id),
		"file":       name,
		"size_bytes": len(data),
	}
	text, err := extract.ExtractDocumentText(s.ctx, s.parser, data)
	if err != nil {
		metrics.IncIngestFailed()
		fields["error"] = err
		telemetry.Error("ingest.failed", fields)
		return
	}

	s.docMu.Lock()
	if seq < s.appliedSeq {
		s.docMu.Unlock()
		fields["reason"] = "superseded"
		telemetry.Warn("ingest.dropped", fields)
		return
	}
	s.appliedSeq = seq
	s.document = text
	// Append while holding docMu so notices follow the order documents were applied.
	s.store.Append(SenderSystem, fmt.Sprintf(UploadNoticeFormat, name))
	s.docMu.Unlock()

	metrics.IncIngestCompleted()
	fields["chars"] = len([]rune(text))
	telemetry.Info("ingest.completed", fields)
}

func (s *Session) start() {
	s.active.Add(1)
	s.inflight.Add(1)
}

func (s *Session) finish() {
	s.active.Add(-1)
	s.inflight.Done()
}
