package llm

import (
	_ "embed"
	"strings"
)

// DocumentExcerptLimit caps how many characters of an uploaded document are
// quoted into a prompt.
const DocumentExcerptLimit = 3000

//go:embed prompts/document_context.txt
var documentContextTemplate string

// ComposePrompt builds the prompt for question. Without document text the
// question is sent verbatim. Otherwise the first DocumentExcerptLimit
// characters of the document are quoted ahead of the unmodified question.
func ComposePrompt(documentText, question string) string {
	if documentText == "" {
		return question
	}
	r := strings.NewReplacer(
		"{{document}}", truncateRunes(documentText, DocumentExcerptLimit),
		"{{question}}", question,
	)
	return r.Replace(strings.TrimRight(documentContextTemplate, "\r\n"))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
