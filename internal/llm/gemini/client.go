package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm"
)

var _ llm.Assistant = (*Client)(nil)

// Client implements llm.Assistant on Google Gemini.
type Client struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
	decoder *llm.FieldDecoder
	log     *slog.Logger
}

func NewClient(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GeminiKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "gemini api key is required", common.ErrInvalidInput)
	}
	name := cfg.GeminiModel
	if name == "" {
		name = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(cfg.Temperature)

	decoder, err := llm.NewFieldDecoder(true, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Client{
		client:  client,
		model:   model,
		name:    name,
		timeout: cfg.Timeout,
		decoder: decoder,
		log:     logger,
	}, nil
}

// Complete sends the context and the prompt as two text parts.
func (c *Client) Complete(ctx context.Context, prompt, background string) (string, error) {
	start := time.Now()
	var parts []genai.Part
	if strings.TrimSpace(background) != "" {
		parts = append(parts, genai.Text(background))
	}
	parts = append(parts, genai.Text(prompt))

	text, err := c.generate(ctx, parts...)
	if err != nil {
		return "", err
	}
	c.log.Info("llm.complete.ok",
		"model", c.name,
		"prompt_len", len(prompt),
		"context_len", len(background),
		"reply_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (c *Client) ExtractFields(ctx context.Context, text string) (fields.AssistedFields, error) {
	reply, err := c.generate(ctx,
		genai.Text(llm.BuildFieldSystemPrompt(constants.AsStringSlice())),
		genai.Text(llm.BuildFieldUserPrompt(text)),
	)
	if err != nil {
		return fields.AssistedFields{}, err
	}
	return c.decoder.Decode(reply)
}

func (c *Client) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		c.log.Error("llm.gemini.generate_error", "model", c.name, "error", err)
		return "", common.NewAppError("LLM_GEMINI", "generating content", fmt.Errorf("%w: %v", common.ErrUnavailable, err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", common.NewAppError("LLM_GEMINI", "no response from gemini", common.ErrDecode)
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			out.WriteString(string(t))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
