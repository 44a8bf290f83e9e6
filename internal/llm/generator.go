// Package llm talks to the text generation providers used for suggested edits.
package llm

import (
	"context"
	"fmt"
	"strings"

	apperrors "regdraft/internal/errors"
)

// Generator produces text for a single prompt. Implementations return a
// *errors.GenerationError on any provider failure or when the cleaned
// response is empty.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

func NewGenerator(ctx context.Context, opts Options) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		return NewGeminiGenerator(ctx, opts.APIKey, opts.Model)
	case "openai":
		return NewOpenAIGenerator(opts.APIKey, opts.Model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", opts.Provider)
	}
}

// finish cleans a raw response and turns an empty result into a generation error.
func finish(provider, raw string) (string, error) {
	text := CleanOutput(raw)
	if text == "" {
		return "", &apperrors.GenerationError{Provider: provider, Err: fmt.Errorf("empty response")}
	}
	return text, nil
}
