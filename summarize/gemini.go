package summarize

import "github.com/tubescribe/tubescribe/model"

// geminiBaseURL is Gemini's OpenAI-compatible chat completions endpoint.
// Using it means one wire client serves both providers.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

const (
	defaultGeminiModel = "gemini-1.5-flash"

	// Gemini takes a larger context, so transcripts get a higher budget.
	geminiTranscriptLimit = 15000
)

// NewGemini returns a Provider backed by Google Gemini. An empty modelName
// selects the default model.
func NewGemini(apiKey, modelName string) Provider {
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	p := newChatProvider(model.ProviderGemini, apiKey, modelName, geminiBaseURL)
	p.transcriptLimit = geminiTranscriptLimit
	return p
}
