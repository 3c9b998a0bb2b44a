// Package summarize turns transcripts into short summaries with a content
// category, using an LLM provider selected per tenant.
package summarize

import (
	"context"

	"github.com/tubescribe/tubescribe/model"
)

// Request carries the inputs for one summarization call.
type Request struct {
	Title      string
	Transcript string
}

// Result is a parsed provider response.
type Result struct {
	Summary  string
	Category string
	Provider model.ProviderName
	Model    string
}

// Provider generates a summary and category for a transcript. Errors are
// classified: model.ErrAuthFailed, model.ErrQuotaExceeded and
// model.ErrProviderUnavailable cover the failure modes callers act on.
type Provider interface {
	Summarize(ctx context.Context, req Request) (Result, error)
}
