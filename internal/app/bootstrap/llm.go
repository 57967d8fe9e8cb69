package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/docbook-ai/internal/chat"
	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// BuildLLMClient wires the chat model. OpenAI-compatible completions are the
// primary; Gemini backs them up when a key is configured. A nil client means
// every reply comes from the rule-based fallback.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (chat.LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var primary chat.LLMClient
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		primary = chat.NewOpenAIClient(chat.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
		})
		logger.Info("chat model enabled", "provider", "openai", "model", cfg.OpenAIModel)
	}

	var secondary chat.LLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := chat.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini: %w", err)
		}
		secondary = gemini
		logger.Info("chat model enabled", "provider", "gemini", "model", cfg.GeminiModel)
	}

	switch {
	case primary != nil && secondary != nil:
		return chat.NewFallbackLLMClient(primary, secondary, logger), nil
	case primary != nil:
		return primary, nil
	case secondary != nil:
		return secondary, nil
	}
	logger.Warn("no chat model configured; replies will use the rule-based fallback")
	return nil, nil
}
