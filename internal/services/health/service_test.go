package health

import "testing"

type fixedCount int

func (f fixedCount) Len() int { return int(f) }

func TestStatus(t *testing.T) {
	got := NewService(fixedCount(3), "gemini").Status()
	if !got.OK || got.Sessions != 3 || got.LLM != "gemini" {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestStatusWithoutSessions(t *testing.T) {
	got := NewService(nil, "placeholder").Status()
	if !got.OK || got.Sessions != 0 {
		t.Fatalf("unexpected status %+v", got)
	}
}
