package llm

import (
	"context"
	"fmt"
)

// NewProvider builds the generator for the named provider. Only Gemini is
// supported today.
func NewProvider(ctx context.Context, providerName, apiKey, modelName string) (*GeminiProvider, error) {
	switch providerName {
	case "", "gemini":
		return NewGeminiProvider(ctx, apiKey, modelName)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}
