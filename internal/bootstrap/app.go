package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chatbot-backend/internal/chat"
	"chatbot-backend/internal/extract"
	"chatbot-backend/internal/llm"
	"chatbot-backend/internal/llm/gemini"
	"chatbot-backend/internal/services/health"
	"chatbot-backend/internal/shared/config"
	"chatbot-backend/internal/shared/server"
	"chatbot-backend/internal/shared/telemetry"
	"chatbot-backend/internal/web"
)

const (
	LLMModeGemini      = "gemini"
	LLMModeGeminiADC   = "gemini_adc"
	LLMModePlaceholder = "placeholder"
)

// App holds shared dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	LLM         llm.Client
	LLMMode     string
	Sessions    *chat.Registry
	ChatHandler *chat.Handler
	WebHandler  *web.Handler
	Health      *health.Service
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	client, mode, err := BuildLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return BuildWithClient(cfg, client, mode, nil)
}

// BuildWithClient wires the app around an existing inference client. now
// drives message timestamps and session expiry; nil means time.Now.
func BuildWithClient(cfg config.Config, client llm.Client, mode string, now func() time.Time) (*App, error) {
	parser := extract.PDFParser{}
	sessions := chat.NewRegistry(func(id string) *chat.Session {
		return chat.NewSession(id, chat.Deps{LLM: client, Parser: parser, Now: now})
	}, cfg.SessionIdleTTL, now)

	webHandler, err := web.NewHandler(sessions)
	if err != nil {
		return nil, fmt.Errorf("load page templates: %w", err)
	}

	app := &App{
		Config:   cfg,
		LLM:      client,
		LLMMode:  mode,
		Sessions: sessions,
		ChatHandler: chat.NewHandler(sessions, chat.HandlerOptions{
			MaxUploadBytes: cfg.MaxUploadBytes,
			AllowedOrigins: cfg.CORSAllowOrigin,
		}),
		WebHandler: webHandler,
		Health:     health.NewService(sessions, mode),
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Chat:   app.ChatHandler,
		Web:    app.WebHandler,
		Health: app.Health,
	})
	return app, nil
}

// BuildLLMClient selects the inference backend. Without a credential in a
// dev-like environment the placeholder client is used so the UI still runs.
func BuildLLMClient(ctx context.Context, cfg config.Config) (llm.Client, string, error) {
	opts := gemini.Options{
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GeminiTimeout,
	}

	switch cfg.GeminiAuth {
	case config.AuthModeADC:
		httpClient, err := gemini.DefaultCredentialsHTTPClient(ctx)
		if err != nil {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.llm.placeholder", map[string]any{"reason": "adc unavailable", "error": err})
				return llm.PlaceholderClient{}, LLMModePlaceholder, nil
			}
			return nil, "", fmt.Errorf("gemini credentials: %w", err)
		}
		opts.HTTPClient = httpClient
		client, err := gemini.NewClient(opts)
		if err != nil {
			return nil, "", err
		}
		return client, LLMModeGeminiADC, nil
	default:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.llm.placeholder", map[string]any{"reason": "GEMINI_API_KEY empty"})
				return llm.PlaceholderClient{}, LLMModePlaceholder, nil
			}
			return nil, "", fmt.Errorf("GEMINI_API_KEY is required")
		}
		opts.APIKey = cfg.GeminiAPIKey
		client, err := gemini.NewClient(opts)
		if err != nil {
			return nil, "", err
		}
		return client, LLMModeGemini, nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
