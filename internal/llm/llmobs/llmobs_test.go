package llmobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"trade-briefing/internal/llm/noop"
	"trade-briefing/internal/logger"
)

type failingCompleter struct{}

func (failingCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return "", errors.New("quota exceeded")
}

type silentCompleter struct{}

func (silentCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return "", nil
}

func TestWrapWarnsOnEmptyReply(t *testing.T) {
	var buf bytes.Buffer
	_ = logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "text", Output: &buf})

	got, err := Wrap(silentCompleter{}, "CLAUDE").Complete(context.Background(), "p", 1)
	if err != nil || got != "" {
		t.Fatalf("Expected empty reply passed through, got %q, %v", got, err)
	}
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "empty reply") {
		t.Errorf("Expected empty reply warning, got %q", buf.String())
	}
}

func TestWrapPassesThroughAndLogs(t *testing.T) {
	var buf bytes.Buffer
	_ = logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "text", Output: &buf})

	c := Wrap(noop.NewNoopCompleter(), "NOOP")
	got, err := c.Complete(context.Background(), "prompt", 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != noop.Reply {
		t.Errorf("Expected noop reply, got %q", got)
	}
	if !strings.Contains(buf.String(), "Completion received") || !strings.Contains(buf.String(), "provider=NOOP") {
		t.Errorf("Expected completion log line, got %q", buf.String())
	}
}

func TestWrapPropagatesErrors(t *testing.T) {
	var buf bytes.Buffer
	_ = logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "text", Output: &buf})

	_, err := Wrap(failingCompleter{}, "OPENAI").Complete(context.Background(), "p", 1)
	if err == nil || err.Error() != "quota exceeded" {
		t.Errorf("Expected original error, got %v", err)
	}
	if !strings.Contains(buf.String(), "Completion failed") {
		t.Errorf("Expected failure log line, got %q", buf.String())
	}
}
