package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMProvider     string
	ModelName       string
	EmbeddingModel  string
	GeminiAPIKey    string
	AnthropicAPIKey string

	RedisURL      string
	WorldDir      string
	ChroniclePath string
	HistoryLimit  int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		ModelName:       getEnv("MODEL_NAME", "gemini-2.0-flash"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", ""),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		WorldDir:      getEnv("WORLD_DIR", "./data/worlds"),
		ChroniclePath: getEnv("CHRONICLE_PATH", "./data/chronicle.db"),
		HistoryLimit:  getEnvInt("HISTORY_LIMIT", 20),
	}
}

// Validate checks the fields the chosen provider requires.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
