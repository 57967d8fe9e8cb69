package chat

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn sent to a language model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LLMRequest struct {
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float32
}

type LLMResponse struct {
	Text       string
	StopReason string
}

// LLMClient completes a chat. Every failure, including an empty reply, is
// returned as an error wrapping ErrExternalService.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
