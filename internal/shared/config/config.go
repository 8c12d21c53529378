package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AuthModeAPIKey sends GEMINI_API_KEY in the x-goog-api-key header.
	AuthModeAPIKey = "api_key"
	// AuthModeADC uses Google Application Default Credentials.
	AuthModeADC = "adc"
)

// EnvProduction is the normalized name of the production environment.
const EnvProduction = "production"

const (
	defaultConfigFile  = "chatbot.toml"
	defaultGeminiModel = "gemini-2.0-flash"
	defaultGeminiBase  = "https://generativelanguage.googleapis.com/v1beta"
	defaultMaxUploadMB = 10
	defaultSessionIdle = 120
	defaultRatePerMin  = 30
	defaultRateBurst   = 10
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	GeminiAPIKey  string
	GeminiAuth    string
	GeminiModel   string
	GeminiBaseURL string
	// GeminiTimeout of zero leaves the HTTP transport defaults in charge.
	GeminiTimeout time.Duration

	MaxUploadBytes int64
	SessionIdleTTL time.Duration

	RateLimitPerMinute float64
	RateLimitBurst     int

	LogLevel string
	LogFile  string
}

// fileConfig mirrors the optional TOML file. Empty values fall through to defaults.
type fileConfig struct {
	Port            string   `toml:"port"`
	Env             string   `toml:"env"`
	CORSAllowOrigin []string `toml:"cors_allow_origins"`
	Gemini          struct {
		APIKey         string `toml:"api_key"`
		Auth           string `toml:"auth"`
		Model          string `toml:"model"`
		BaseURL        string `toml:"base_url"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
	} `toml:"gemini"`
	Uploads struct {
		MaxMB int `toml:"max_mb"`
	} `toml:"uploads"`
	Sessions struct {
		IdleMinutes int `toml:"idle_minutes"`
	} `toml:"sessions"`
	RateLimit struct {
		PerMinute float64 `toml:"per_minute"`
		Burst     int     `toml:"burst"`
	} `toml:"rate_limit"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

// Load reads configuration from an optional TOML file and environment
// variables. Precedence is environment, then file, then defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	fc, err := loadFile(getEnv("CHATBOT_CONFIG", defaultConfigFile))
	if err != nil {
		log.Printf("config: ignoring config file: %v", err)
	}
	return fromSources(fc)
}

func fromSources(fc fileConfig) Config {
	// The bundled page is same-origin, so no cross-origin caller is trusted by default.
	cors := ""
	if len(fc.CORSAllowOrigin) > 0 {
		cors = strings.Join(fc.CORSAllowOrigin, ",")
	}

	cfg := Config{
		Port:               getEnv("PORT", orDefault(fc.Port, "8080")),
		Env:                normalizeEnv(getEnv("ENV", orDefault(fc.Env, "dev"))),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", cors)),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", fc.Gemini.APIKey),
		GeminiAuth:         normalizeAuth(getEnv("GEMINI_AUTH", fc.Gemini.Auth)),
		GeminiModel:        getEnv("GEMINI_MODEL", orDefault(fc.Gemini.Model, defaultGeminiModel)),
		GeminiBaseURL:      strings.TrimRight(getEnv("GEMINI_BASE_URL", orDefault(fc.Gemini.BaseURL, defaultGeminiBase)), "/"),
		GeminiTimeout:      time.Duration(getInt("GEMINI_TIMEOUT_SECONDS", fc.Gemini.TimeoutSeconds)) * time.Second,
		MaxUploadBytes:     int64(getInt("MAX_UPLOAD_MB", orDefaultInt(fc.Uploads.MaxMB, defaultMaxUploadMB))) << 20,
		SessionIdleTTL:     time.Duration(getInt("SESSION_IDLE_MINUTES", orDefaultInt(fc.Sessions.IdleMinutes, defaultSessionIdle))) * time.Minute,
		RateLimitPerMinute: getFloat("RATE_LIMIT_PER_MINUTE", orDefaultFloat(fc.RateLimit.PerMinute, defaultRatePerMin)),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", orDefaultInt(fc.RateLimit.Burst, defaultRateBurst)),
		LogLevel:           getEnv("LOG_LEVEL", orDefault(fc.Log.Level, "info")),
		LogFile:            getEnv("LOG_FILE", fc.Log.File),
	}
	if cfg.GeminiTimeout < 0 {
		cfg.GeminiTimeout = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadMB << 20
	}
	if cfg.IsProduction() && cfg.GeminiAPIKey == "" && cfg.GeminiAuth == AuthModeAPIKey {
		log.Printf("GEMINI_API_KEY is required in production unless GEMINI_AUTH=adc")
	}
	return cfg
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileConfig{}, nil
		}
		return fileConfig{}, err
	}
	return fc, nil
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return parsed
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: %s=%q is not a number, using %g", key, raw, def)
		return def
	}
	return parsed
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func orDefaultInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orDefaultFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return EnvProduction
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeAuth(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "adc", "oauth", "google":
		return AuthModeADC
	default:
		return AuthModeAPIKey
	}
}

// IsProduction reports whether the normalized environment is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}
