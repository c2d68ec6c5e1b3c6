package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"sharia-audit-backend/models"
)

// defaultExtractionModels is the candidate chain for extraction, tried in
// priority order until one returns a structurally valid clause list.
var defaultExtractionModels = []string{
	"gemini-flash-latest",
	"gemini-2.5-flash",
	"gemini-2.0-flash",
}

const extractionPrompt = `You are an elite Islamic Finance Compliance Officer. Your task is to extract EVERY segment from this Murabaha contract that contains a functional requirement or legal commitment.

DO NOT SUMMARIZE. Extract the raw text as it appears in the document.

PART 1: SCANNING OBJECTIVES
Find all sections related to:
1. PRICING & PROFIT: How is the price determined? Is it fixed? Does it reference benchmarks (LIBOR, EIBOR)?
2. PENALTIES: What happens if payment is late? Who receives the money?
3. ASSET POSSESSION: When does the bank acquire the asset? When does the customer get it? Look for 'actual' or 'constructive' possession.
4. AGENCY (WAKALA): Is the customer acting as an agent to buy the asset?
5. INSURANCE/TAKAFUL: Who pays? Is it a condition?
6. DISCOUNTS: Early payment discounts, etc.
7. COSTS: Internal staff costs, administrative fees, etc.

PART 2: STRUCTURED ANALYSIS
For each extracted segment, perform a granular metadata analysis for the following variables:
- penalty_recipient: ('charity', 'bank', 'unknown')
- profit_basis: ('fixed', 'future_variable', 'unknown')
- is_fixed_at_signature: (true/false)
- possession_acquired_before_sale: (true/false)
- ownership_transfer_condition: ('immediate', 'on_full_payment', 'unknown')
- customer_as_agent: (true/false)
- insurance_payer_pre_sale: ('bank', 'customer', 'unknown')
- includes_internal_staff_costs: (true/false)
- damage_recovery_includes_markup: (true/false)
- discount_in_contract: (true/false)
- expenses_disclosed: (true/false)
- supplier_invoice_recipient: ('bank', 'customer', 'unknown')

Output a JSON list of objects. Be exhaustive. If there are many clauses, extract all of them.
If the document numbers its clauses, report the document-native number in "clause_id"; otherwise omit it.
Format:
[
  {
    "clause_id": "4.2",
    "topic": "Identification of Topic",
    "text": "Full verbatim text of the clause...",
    "metadata": { ...all variables above... }
  }
]`

// ClauseExtractor turns an uploaded contract into an ordered clause list
// via a multimodal Gemini call, falling through a chain of candidate
// models until one returns a parseable result.
type ClauseExtractor struct {
	client   *genai.Client
	models   []string
	generate generateFunc
}

// ClauseExtractorOption is a functional option for ClauseExtractor.
type ClauseExtractorOption func(*ClauseExtractor)

// ExtractorWithModels overrides the candidate model chain.
func ExtractorWithModels(models []string) ClauseExtractorOption {
	return func(e *ClauseExtractor) {
		e.models = models
	}
}

// ExtractorWithGenerateFunc overrides the generation call (used in tests).
func ExtractorWithGenerateFunc(fn generateFunc) ClauseExtractorOption {
	return func(e *ClauseExtractor) {
		e.generate = fn
	}
}

// NewClauseExtractor creates a new clause extractor.
func NewClauseExtractor(client *genai.Client, opts ...ClauseExtractorOption) *ClauseExtractor {
	e := &ClauseExtractor{
		client:   client,
		models:   defaultExtractionModels,
		generate: generateWithClient(client),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract sends the document to each candidate model in order and returns
// the first structurally valid clause list. The two return states matter:
// an empty slice with an empty error string means the document contained
// no Murabaha-relevant clauses; an empty slice with a non-empty error
// string means every candidate model failed. Callers must branch on the
// error string, not on emptiness.
func (e *ClauseExtractor) Extract(ctx context.Context, document []byte) ([]models.Clause, string) {
	var lastErr error

	for _, model := range e.models {
		raw, err := e.generate(ctx, model,
			genai.Text(extractionPrompt),
			genai.Blob{MIMEType: "application/pdf", Data: document},
		)
		if err != nil {
			log.Printf("[extractor] model %s failed: %v", model, err)
			lastErr = err
			continue
		}

		clauses, err := parseClauses(raw)
		if err != nil {
			log.Printf("[extractor] model %s returned unparseable output: %v", model, err)
			lastErr = err
			continue
		}

		log.Printf("[extractor] model %s extracted %d clauses", model, len(clauses))
		return clauses, ""
	}

	reason := "no attempt recorded"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return nil, fmt.Sprintf("all extraction models failed [%s]: last error: %s",
		strings.Join(e.models, ", "), reason)
}

type parsedClause struct {
	ClauseID *string               `json:"clause_id"`
	Topic    string                `json:"topic"`
	Text     string                `json:"text"`
	Metadata models.MetadataRecord `json:"metadata"`
}

// parseClauses cleans and decodes one model response into clause records,
// backfilling the metadata schema defaults on every clause.
func parseClauses(raw string) ([]models.Clause, error) {
	clean := stripCodeFences(raw)

	var parsed []parsedClause
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode clause list: %w", err)
	}

	clauses := make([]models.Clause, 0, len(parsed))
	for _, p := range parsed {
		clauseID := p.ClauseID
		if clauseID != nil && *clauseID == "" {
			clauseID = nil
		}
		clauses = append(clauses, models.Clause{
			ClauseID: clauseID,
			Topic:    p.Topic,
			Text:     p.Text,
			Metadata: models.MergeMetadata(p.Metadata),
		})
	}
	return clauses, nil
}
