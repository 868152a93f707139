package llm

import "context"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Generator turns a text prompt into generated text. An empty string with a
// nil error means the model answered with nothing.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelLister is implemented by generators that can enumerate the models
// available to the configured credential.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
