package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackLLMClient(t *testing.T) {
	ctx := context.Background()
	primaryErr := errors.New("primary down")

	resp, err := NewFallbackLLMClient(&stubLLM{resp: LLMResponse{Text: "primary"}}, &stubLLM{resp: LLMResponse{Text: "secondary"}}, nil).
		Complete(ctx, LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Text)

	resp, err = NewFallbackLLMClient(&stubLLM{err: primaryErr}, &stubLLM{resp: LLMResponse{Text: "secondary"}}, nil).
		Complete(ctx, LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "secondary", resp.Text)

	_, err = NewFallbackLLMClient(&stubLLM{err: primaryErr}, nil, nil).Complete(ctx, LLMRequest{})
	assert.ErrorIs(t, err, primaryErr)
}
