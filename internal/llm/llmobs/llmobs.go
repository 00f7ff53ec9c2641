package llmobs

import (
	"context"
	"strings"
	"time"

	"trade-briefing/internal/interfaces"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/trace"
)

// observableCompleter wraps a Completer with observability (logging & tracing)
type observableCompleter struct {
	completer interfaces.Completer
	provider  string
}

// Compile-time interface check
var _ interfaces.Completer = (*observableCompleter)(nil)

// Wrap wraps a completer with observability middleware
func Wrap(completer interfaces.Completer, provider string) interfaces.Completer {
	return &observableCompleter{
		completer: completer,
		provider:  provider,
	}
}

// Complete forwards the prompt and logs size, latency and failures
func (oc *observableCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"provider", oc.provider,
		"prompt_chars", len(prompt),
		"max_tokens", maxTokens,
	)

	start := time.Now()
	reply, err := oc.completer.Complete(ctx, prompt, maxTokens)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err,
			"provider", oc.provider,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	if strings.TrimSpace(reply) == "" {
		logger.WarnSkip(ctx, 1, "Completion returned an empty reply",
			"provider", oc.provider,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return reply, nil
	}

	logger.InfoSkip(ctx, 1, "Completion received",
		"provider", oc.provider,
		"reply_chars", len(reply),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}
