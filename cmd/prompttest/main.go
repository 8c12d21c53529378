package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"chatbot-backend/internal/bootstrap"
	"chatbot-backend/internal/extract"
	"chatbot-backend/internal/llm"
	"chatbot-backend/internal/shared/config"
)

// prompttest sends one question, optionally grounded in a PDF, through the
// same prompt and fallback path the chat uses.
func main() {
	cfg := config.Load()

	pdfPath := flag.String("pdf", "", "Path to a PDF to quote (optional)")
	question := flag.String("q", "", "Question to ask")
	model := flag.String("model", cfg.GeminiModel, "Gemini model")
	showPrompt := flag.Bool("show-prompt", false, "Print the composed prompt before sending")
	flag.Parse()

	if strings.TrimSpace(*question) == "" {
		exitErr("question is required (-q)")
	}
	cfg.GeminiModel = *model

	ctx := context.Background()
	documentText := ""
	if strings.TrimSpace(*pdfPath) != "" {
		data, err := os.ReadFile(*pdfPath)
		if err != nil {
			exitErr(fmt.Sprintf("read pdf: %v", err))
		}
		documentText, err = extract.ExtractTextFromBytes(ctx, data, mimetype.Detect(data).String())
		if err != nil {
			exitErr(fmt.Sprintf("extract pdf text: %v", err))
		}
	}

	client, mode, err := bootstrap.BuildLLMClient(ctx, cfg)
	if err != nil {
		exitErr(err.Error())
	}

	prompt := llm.ComposePrompt(documentText, *question)
	if *showPrompt {
		fmt.Fprintf(os.Stderr, "--- prompt (%d chars, llm=%s) ---\n%s\n---\n", len(prompt), mode, prompt)
	}

	reply := llm.Ask(ctx, client, prompt)
	fmt.Println(reply.Text)
	if reply.Err != nil {
		fmt.Fprintf(os.Stderr, "outcome=%s duration=%s error=%v\n", reply.Outcome, reply.Duration, reply.Err)
		os.Exit(2)
	}
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
