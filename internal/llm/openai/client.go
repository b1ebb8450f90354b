package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm"
)

var _ llm.Assistant = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements llm.ReasoningService: the context goes in as the system
// message, the prompt as the user message.
func (c *Client) Complete(ctx context.Context, prompt, background string) (string, error) {
	start := time.Now()
	msgs := []chatMessage{}
	if strings.TrimSpace(background) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: background})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	content, err := c.chat(ctx, map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages":    msgs,
	})
	if err != nil {
		return "", err
	}
	c.log.Info("llm.complete.ok",
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
		"context_len", len(background),
		"reply_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// ExtractFields implements fields.FieldAssistant with a JSON-mode completion.
func (c *Client) ExtractFields(ctx context.Context, text string) (fields.AssistedFields, error) {
	start := time.Now()
	content, err := c.chat(ctx, map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []chatMessage{
			{Role: "system", Content: llm.BuildFieldSystemPrompt(constants.AsStringSlice())},
			{Role: "user", Content: llm.BuildFieldUserPrompt(text)},
		},
	})
	if err != nil {
		return fields.AssistedFields{}, err
	}
	out, err := c.decoder.Decode(content)
	if err != nil {
		c.log.Error("llm.extract.decode_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return fields.AssistedFields{}, err
	}
	c.log.Info("llm.extract.ok",
		"model", c.cfg.Model,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) chat(ctx context.Context, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.chat.http_error", "status", status, "error", err)
		return "", err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.chat.decode_error", "error", err, "raw_bytes", len(raw))
		return "", common.NewAppError("LLM_REPLY", "decode openai response", fmt.Errorf("%w: %v", common.ErrDecode, err))
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.chat.no_choices", "raw", string(raw))
		return "", common.NewAppError("LLM_REPLY", "no choices in openai response", common.ErrDecode)
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
