package health

// SessionCounter reports how many conversations are live.
type SessionCounter interface {
	Len() int
}

// Service encapsulates health-related checks.
type Service struct {
	sessions SessionCounter
	llmMode  string
}

// NewService constructs a new health service. llmMode names the configured
// inference backend.
func NewService(sessions SessionCounter, llmMode string) *Service {
	return &Service{sessions: sessions, llmMode: llmMode}
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Sessions int    `json:"sessions"`
	LLM      string `json:"llm"`
}

// Status returns a simple health payload.
func (s *Service) Status() Status {
	st := Status{OK: true, LLM: s.llmMode}
	if s.sessions != nil {
		st.Sessions = s.sessions.Len()
	}
	return st
}
