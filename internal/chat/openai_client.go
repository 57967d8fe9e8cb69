package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var openaiTracer = otel.Tracer("docbook.internal.chat.openai")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIClient implements LLMClient against an OpenAI-compatible API.
type OpenAIClient struct {
	client  chatCompleter
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a client. Without an API key every call fails with
// ErrExternalService.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	c := &OpenAIClient{model: cfg.Model, timeout: cfg.Timeout}
	if c.model == "" {
		c.model = "gpt-4.1-nano"
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return c
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	c.client = openai.NewClientWithConfig(clientCfg)
	return c
}

func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, span := openaiTracer.Start(ctx, "chat.openai")
	defer span.End()
	span.SetAttributes(attribute.String("docbook.llm.model", c.model))

	if c.client == nil {
		return LLMResponse{}, fmt.Errorf("%w: openai api key not configured", ErrExternalService)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		return LLMResponse{}, fmt.Errorf("%w: openai completion failed: %v", ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, fmt.Errorf("%w: openai returned no choices", ErrExternalService)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return LLMResponse{}, fmt.Errorf("%w: openai returned empty content", ErrExternalService)
	}
	span.SetAttributes(attribute.Int("docbook.llm.choices", len(resp.Choices)))
	return LLMResponse{Text: text, StopReason: string(resp.Choices[0].FinishReason)}, nil
}
