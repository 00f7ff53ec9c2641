package noop

import (
	"context"

	"trade-briefing/internal/logger"
)

// Reply is what NoopCompleter answers to every prompt.
const Reply = "No language model configured. No setups extracted."

// NoopCompleter is the fallback used when no provider is configured. Its reply
// carries no setups, so a dry run renders an empty dashboard.
type NoopCompleter struct{}

func NewNoopCompleter() *NoopCompleter {
	return &NoopCompleter{}
}

func (c *NoopCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	logger.Debug(ctx, "Noop completer called", "prompt_chars", len(prompt), "max_tokens", maxTokens)
	return Reply, nil
}
