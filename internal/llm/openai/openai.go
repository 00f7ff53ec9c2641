package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"trade-briefing/internal/store"
	"trade-briefing/internal/trace"
)

const defaultSystem = "You are a precise trading analyst. Report only levels that were actually discussed."

// OpenAICompleter answers prompts with the OpenAI chat completions API.
type OpenAICompleter struct {
	client      oai.Client
	model       string
	system      string
	temperature float64
}

// NewOpenAICompleter builds a completer from the llm section of cfg. Extra
// request options (base URL, retries) are passed through to the client.
func NewOpenAICompleter(cfg *store.Config, apiKey string, opts ...option.RequestOption) *OpenAICompleter {
	system := cfg.LLM.System
	if system == "" {
		system = defaultSystem
	}
	return &OpenAICompleter{
		client:      oai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:       cfg.LLM.Model,
		system:      system,
		temperature: cfg.LLM.Temperature,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	params := oai.ChatCompletionNewParams{
		Model: oai.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(c.system),
			oai.UserMessage(prompt),
		},
		Temperature: oai.Float(c.temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = oai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
