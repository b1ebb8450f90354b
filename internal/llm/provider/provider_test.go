package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm/openai"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("offline by default", func(t *testing.T) {
		a, closeFn, err := New(ctx, common.LLMConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, llm.Offline{}, a)
		assert.NoError(t, closeFn())
	})

	t.Run("openai", func(t *testing.T) {
		a, _, err := New(ctx, common.LLMConfig{Provider: "OpenAI", APIKey: "sk-test", Model: "gpt-4o-mini"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &openai.Client{}, a)
	})

	t.Run("gemini without a key", func(t *testing.T) {
		_, _, err := New(ctx, common.LLMConfig{Provider: "gemini"}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := New(ctx, common.LLMConfig{Provider: "mystery"}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	})
}
