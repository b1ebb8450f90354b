// Package provider selects the reasoning backend named in configuration.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm/gemini"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm/openai"
)

// New returns the configured assistant and a close func to release it.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Assistant, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "offline":
		logger.Info("llm.provider.selected", "provider", "offline")
		return llm.Offline{}, noop, nil
	case "openai":
		c, err := openai.NewClient(openai.ConfigFrom(cfg), logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("llm.provider.selected", "provider", "openai", "model", cfg.Model)
		return c, noop, nil
	case "gemini":
		c, err := gemini.NewClient(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("llm.provider.selected", "provider", "gemini", "model", cfg.GeminiModel)
		return c, c.Close, nil
	default:
		return nil, nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}
