package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"chatbot-backend/internal/bootstrap"
	"chatbot-backend/internal/chat"
	"chatbot-backend/internal/extract"
	"chatbot-backend/internal/shared/config"
	"chatbot-backend/internal/shared/telemetry"
	"chatbot-backend/internal/tui"
)

func main() {
	cfg := config.Load()

	// Stdout belongs to the terminal UI, so logs go to a file only.
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(os.TempDir(), "chatbot-tui.log")
	}
	closeLogs, err := telemetry.Setup(telemetry.Options{Level: cfg.LogLevel, File: logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
	}
	defer closeLogs()

	client, mode, err := bootstrap.BuildLLMClient(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "llm client: %v\n", err)
		os.Exit(1)
	}
	telemetry.Info("tui.start", map[string]any{"llm": mode, "log_file": logFile})

	session := chat.NewSession(uuid.NewString(), chat.Deps{LLM: client, Parser: extract.PDFParser{}})
	model := tui.New(session)
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		os.Exit(1)
	}
	session.Wait()
}
