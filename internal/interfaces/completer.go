package interfaces

import "context"

// Completer sends one prompt to a language model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
