package llm

import (
	"context"
	"net/http"
)

// TextGenerator turns a fully built prompt into model output.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config is shared by every chat provider.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
	BaseURL     string
	MaxRetries  int
	HTTPClient  *http.Client
}

// TokenCounter estimates the prompt size a model will see.
type TokenCounter interface {
	Count(text string) int
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
