package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"trade-briefing/internal/store"
	"trade-briefing/internal/trace"
)

const defaultModel = "claude-haiku-4-5"

// ClaudeCompleter answers prompts with the Anthropic Messages API.
type ClaudeCompleter struct {
	client      anthropic.Client
	model       string
	system      string
	temperature float64
}

// NewClaudeCompleter creates a Claude-backed completer. Set endpoint to route
// through a proxy; empty uses the public API.
func NewClaudeCompleter(cfg *store.Config, apiKey, endpoint string, opts ...option.RequestOption) *ClaudeCompleter {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		all = append(all, option.WithBaseURL(endpoint))
	}
	all = append(all, opts...)

	model := cfg.LLM.Model
	if model == "" || strings.HasPrefix(model, "gpt") {
		model = defaultModel
	}
	return &ClaudeCompleter{
		client:      anthropic.NewClient(all...),
		model:       model,
		system:      cfg.LLM.System,
		temperature: cfg.LLM.Temperature,
	}
}

func (c *ClaudeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	// Create span for LLM API call
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(c.temperature),
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text in anthropic response")
	}
	return strings.TrimSpace(b.String()), nil
}
