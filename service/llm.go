package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
)

const (
	embeddingAPI   = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	embeddingDims  = 768
	maxRetries     = 3
	initialBackoff = time.Second
)

// generateFunc runs one generation attempt against a named model and
// returns the concatenated text of the response. Extractor and explainer
// both walk their candidate-model chains through this seam.
type generateFunc func(ctx context.Context, model string, parts ...genai.Part) (string, error)

// generateWithClient adapts a genai client into a generateFunc.
func generateWithClient(client *genai.Client) generateFunc {
	return func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
		if client == nil {
			return "", errors.New("gemini client not set")
		}

		resp, err := client.GenerativeModel(model).GenerateContent(ctx, parts...)
		if err != nil {
			return "", err
		}

		var builder strings.Builder
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					builder.WriteString(string(text))
				}
			}
		}

		if builder.Len() == 0 {
			return "", errors.New("model returned no text candidates")
		}
		return builder.String(), nil
	}
}

// stripCodeFences removes surrounding ```json / ``` markup that models
// routinely wrap structured output in.
func stripCodeFences(raw string) string {
	clean := strings.TrimSpace(raw)
	if idx := strings.Index(clean, "```json"); idx >= 0 {
		clean = clean[idx+len("```json"):]
		if end := strings.Index(clean, "```"); end >= 0 {
			clean = clean[:end]
		}
	} else if idx := strings.Index(clean, "```"); idx >= 0 {
		clean = clean[idx+len("```"):]
		if end := strings.Index(clean, "```"); end >= 0 {
			clean = clean[:end]
		}
	}
	return strings.TrimSpace(clean)
}

// extractJSONObject pulls the first brace-delimited object out of a
// response, tolerating extraneous prose before and after the JSON.
func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object found in response")
	}
	return raw[start : end+1], nil
}
