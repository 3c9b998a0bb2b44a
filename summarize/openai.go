package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/tubescribe/tubescribe/model"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"

	// openAITranscriptLimit keeps the prompt within the model's context
	// budget, roughly 3000 tokens of transcript.
	openAITranscriptLimit = 12000
)

// chatProvider talks to any chat-completions compatible endpoint. OpenAI
// uses it directly; Gemini through its compatibility layer.
type chatProvider struct {
	client          *openai.Client
	name            model.ProviderName
	model           string
	transcriptLimit int
	logger          *slog.Logger
}

// NewOpenAI returns a Provider backed by the OpenAI chat completions API.
// An empty modelName selects the default model.
func NewOpenAI(apiKey, modelName string) Provider {
	return newChatProvider(model.ProviderOpenAI, apiKey, modelName, "")
}

func newChatProvider(name model.ProviderName, apiKey, modelName, baseURL string) *chatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	p := &chatProvider{
		client:          openai.NewClientWithConfig(cfg),
		name:            name,
		model:           modelName,
		transcriptLimit: openAITranscriptLimit,
		logger:          slog.Default(),
	}
	if p.model == "" {
		p.model = defaultOpenAIModel
	}
	return p
}

func (p *chatProvider) Summarize(ctx context.Context, req Request) (Result, error) {
	transcript := truncateTranscript(req.Transcript, p.transcriptLimit)
	if len(transcript) < len(req.Transcript) {
		p.logger.Warn("transcript truncated for prompt",
			"provider", p.name,
			"original_chars", len(req.Transcript),
			"limit", p.transcriptLimit)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req.Title, transcript)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return Result{}, classifyProviderError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: %s returned no choices", model.ErrProviderUnavailable, p.name)
	}

	summary, category := parseResult(resp.Choices[0].Message.Content)
	p.logger.Info("generated summary", "provider", p.name, "model", p.model, "category", category)

	return Result{
		Summary:  summary,
		Category: category,
		Provider: p.name,
		Model:    p.model,
	}, nil
}

// classifyProviderError maps provider HTTP failures onto the error
// taxonomy so callers can distinguish bad credentials from exhausted
// quota from a provider outage.
func classifyProviderError(name model.ProviderName, err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %v", model.ErrAuthFailed, name, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: %v", model.ErrQuotaExceeded, name, err)
	default:
		return fmt.Errorf("%w: %s: %v", model.ErrProviderUnavailable, name, err)
	}
}
