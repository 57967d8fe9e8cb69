package chat

import (
	"context"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// FallbackLLMClient tries a primary model and, when it fails, a secondary one.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient wraps primary. A nil fallback makes it a passthrough.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if c.fallback == nil {
		return LLMResponse{}, err
	}

	c.logger.Warn("primary LLM failed, attempting fallback", "error", err)
	resp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed", "primary_error", err, "fallback_error", fallbackErr)
		return LLMResponse{}, fallbackErr
	}
	return resp, nil
}
