package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{name: "nil response", resp: nil, want: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, want: ""},
		{
			name: "nil content",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			want: "",
		},
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello, "), genai.Text("world")}},
			}}},
			want: "Hello, world",
		},
		{
			name: "skips non-text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{
					genai.FunctionCall{Name: "noop"},
					genai.Text("report"),
				}},
			}}},
			want: "report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, responseText(tt.resp))
		})
	}
}

func TestGeneratorFunc(t *testing.T) {
	boom := errors.New("boom")
	var g Generator = GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if prompt == "fail" {
			return "", boom
		}
		return "echo: " + prompt, nil
	})

	got, err := g.Generate(context.Background(), "hi")
	assert.NoError(t, err)
	assert.Equal(t, "echo: hi", got)

	_, err = g.Generate(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)
}

func TestNewProviderRejectsUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), "openai", "key", "")
	assert.EqualError(t, err, "unknown provider: openai")
}
