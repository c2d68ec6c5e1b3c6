package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"sharia-audit-backend/models"
)

var ErrEmbeddingFailed = errors.New("failed to generate embedding")

// RuleSearcher performs the top-1 nearest-neighbor lookup against the
// pre-populated rule corpus.
type RuleSearcher interface {
	SearchTopMatch(ctx context.Context, embedding []float64) (*models.Rule, error)
}

// RuleRetriever embeds clause text in query mode and returns the single
// best-matching rule from the corpus index. By default the top-1 match is
// trusted unconditionally (no confidence gating); a minimum cosine
// similarity can be configured to gate weak matches.
type RuleRetriever struct {
	searcher RuleSearcher
	minScore float64
	embed    func(ctx context.Context, text string) ([]float64, error)
}

// RuleRetrieverOption is a functional option for RuleRetriever.
type RuleRetrieverOption func(*RuleRetriever)

// RetrieverWithMinScore sets the minimum cosine similarity a match must
// reach; zero disables the gate.
func RetrieverWithMinScore(score float64) RuleRetrieverOption {
	return func(r *RuleRetriever) {
		r.minScore = score
	}
}

// RetrieverWithEmbedFunc overrides the embedding call (used in tests).
func RetrieverWithEmbedFunc(fn func(ctx context.Context, text string) ([]float64, error)) RuleRetrieverOption {
	return func(r *RuleRetriever) {
		r.embed = fn
	}
}

// NewRuleRetriever creates a new rule retriever.
func NewRuleRetriever(searcher RuleSearcher, opts ...RuleRetrieverOption) *RuleRetriever {
	r := &RuleRetriever{searcher: searcher}
	r.embed = r.embedQueryText
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the best-matching rule for one clause, or nil when the
// index yields no match (or the match is gated by the configured minimum
// score). A nil rule is not an error: the caller skips the clause.
func (r *RuleRetriever) Retrieve(ctx context.Context, clauseText string) (*models.Rule, error) {
	if r.searcher == nil {
		return nil, errors.New("rule searcher not set")
	}

	embedding, err := r.embed(ctx, clauseText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed clause text: %w", err)
	}

	rule, err := r.searcher.SearchTopMatch(ctx, embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to search rule index: %w", err)
	}
	if rule == nil {
		return nil, nil
	}

	if r.minScore > 0 && rule.Similarity < r.minScore {
		log.Printf("[retriever] gating match %s (similarity %.4f below %.4f)",
			rule.RuleID, rule.Similarity, r.minScore)
		return nil, nil
	}

	return rule, nil
}

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents an embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// embedQueryText generates a normalized query embedding for one clause.
func (r *RuleRetriever) embedQueryText(ctx context.Context, text string) ([]float64, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	reqBody := EmbeddingRequest{
		Model: "models/gemini-embedding-001",
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             "RETRIEVAL_QUERY",
		OutputDimensionality: embeddingDims,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", embeddingAPI, bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", apiKey)

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var apiResp EmbeddingResponse
			if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
				resp.Body.Close()
				if attempt == maxRetries-1 {
					return nil, fmt.Errorf("failed to decode response: %w", err)
				}
				continue
			}
			resp.Body.Close()

			return normalizeEmbedding(apiResp.Embedding.Values), nil
		}

		resp.Body.Close()

		// Don't retry on 400 or 401 errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("API error: %d", resp.StatusCode)
		}

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("API error after %d attempts: %d", maxRetries, resp.StatusCode)
		}
	}

	return nil, ErrEmbeddingFailed
}

// normalizeEmbedding scales a vector to unit length so the cosine distance
// in the index behaves consistently.
func normalizeEmbedding(embedding []float64) []float64 {
	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range embedding {
			embedding[i] /= norm
		}
	}
	return embedding
}
