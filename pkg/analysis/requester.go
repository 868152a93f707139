package analysis

import (
	"context"
	"log/slog"

	"github.com/user/secmon/pkg/finding"
	"github.com/user/secmon/pkg/llm"
)

// Requester turns a finding into a prompt, asks the model for an
// assessment and normalises the answer. It makes exactly one model call
// per finding and never retries.
type Requester struct {
	gen    llm.Generator
	logger *slog.Logger
}

func NewRequester(gen llm.Generator, logger *slog.Logger) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Requester{gen: gen, logger: logger}
}

// Analyze never returns an error; failures are reported through the
// result's Outcome, Error and Err fields.
func (r *Requester) Analyze(ctx context.Context, f finding.Finding) Result {
	fields := FieldsOf(f)

	prompt, err := BuildPrompt(f)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to build analysis prompt", "finding", fields.Name, "error", err)
		return errorResult(OutcomeCallFault, err.Error(), fields.Name, err)
	}

	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "error during gemini analysis", "finding", fields.Name, "error", err)
		return errorResult(OutcomeCallFault, err.Error(), fields.Name, err)
	}

	if text == "" {
		r.logger.ErrorContext(ctx, "empty response from gemini model", "finding", fields.Name)
		return errorResult(OutcomeEmptyResponse, errEmptyResult, fields.Name, nil)
	}

	return successResult(fields, text, f.CreateTime)
}
