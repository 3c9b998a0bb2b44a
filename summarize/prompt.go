package summarize

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a helpful assistant that summarizes and categorizes video content."

const truncationMarker = "... [truncated]"

// Categories is the closed set of content categories. Responses outside it
// fall back to Other.
var Categories = []string{
	"Education", "Technology", "Entertainment", "Tutorial", "News",
	"Review", "Gaming", "Music", "Science", "Business", "Health",
	"Sports", "Lifestyle", "Comedy", "Documentary", "Other",
}

func buildPrompt(title, transcript string) string {
	return fmt.Sprintf(`Analyze this YouTube video and provide a summary and category.

Video Title: %s

Transcription:
%s

Please provide:
1. A concise summary (2-3 sentences) of the main points and key takeaways
2. A category from this list: %s

Format your response EXACTLY as follows:
SUMMARY: [Your summary here]
CATEGORY: [Category name]`, title, transcript, strings.Join(Categories, ", "))
}

// truncateTranscript bounds the transcript to the provider's character
// budget, marking the cut.
func truncateTranscript(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + truncationMarker
}

// parseResult extracts summary and category from a provider response.
// Providers do not always honor the response format, so parsing degrades
// gracefully: a missing summary falls back to the response's first
// sentences, an off-list category to a scan of the whole response, and
// finally to Other.
func parseResult(response string) (summary, category string) {
	category = "Other"

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "SUMMARY:"); ok {
			summary = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(line, "CATEGORY:"); ok {
			category = strings.TrimSpace(rest)
		}
	}

	if summary == "" {
		sentences := strings.SplitN(strings.TrimSpace(response), ".", 4)
		if len(sentences) > 3 {
			sentences = sentences[:3]
		}
		summary = strings.TrimSpace(strings.Join(sentences, "."))
		if summary != "" && !strings.HasSuffix(summary, ".") {
			summary += "."
		}
	}

	if !validCategory(category) {
		category = "Other"
		lower := strings.ToLower(response)
		for _, c := range Categories {
			if strings.Contains(lower, strings.ToLower(c)) {
				category = c
				break
			}
		}
	}
	return summary, category
}

func validCategory(c string) bool {
	for _, valid := range Categories {
		if c == valid {
			return true
		}
	}
	return false
}
