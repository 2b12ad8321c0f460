package gateway

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// NewFromEnv returns a gateway based on environment variables.
// Supported providers:
// - LLM_PROVIDER=openai|anthropic|gemini
// - For OpenAI:    OPENAI_API_KEY, optional OPENAI_API_BASE
// - For Anthropic: ANTHROPIC_API_KEY, optional ANTHROPIC_API_BASE
// - For Gemini:    GOOGLE_API_KEY
// If nothing is configured, returns a MockClient so the pipeline stays
// runnable in development.
func NewFromEnv(ctx context.Context, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	prov := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))

	switch prov {
	case "openai":
		if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			return &OpenAIClient{APIKey: key, BaseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/")}
		}
	case "anthropic":
		if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
			return &AnthropicClient{APIKey: key, BaseURL: strings.TrimRight(os.Getenv("ANTHROPIC_API_BASE"), "/")}
		}
	case "gemini":
		if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
			if c, err := NewGeminiClient(ctx, key); err == nil {
				return c
			} else {
				logger.Warn("gemini client init failed, falling back", "error", err)
			}
		}
	}

	// Auto-detect by API key presence if provider not specified.
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return &OpenAIClient{APIKey: key, BaseURL: strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/")}
	}
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		return &AnthropicClient{APIKey: key}
	}
	if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
		if c, err := NewGeminiClient(ctx, key); err == nil {
			return c
		} else {
			logger.Warn("gemini client init failed, falling back", "error", err)
		}
	}

	logger.Warn("no LLM provider configured, using mock gateway")
	return &MockClient{}
}
