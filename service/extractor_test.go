package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clauseJSON = `[
  {
    "clause_id": "7.3",
    "topic": "Late Payment Penalty",
    "text": "Any late payment charge shall be retained by the Bank.",
    "metadata": {"penalty_recipient": "bank"}
  },
  {
    "topic": "Asset Possession",
    "text": "The Bank shall acquire constructive possession prior to sale.",
    "metadata": {"possession_acquired_before_sale": false}
  }
]`

// scriptedGenerate returns one canned response (or error) per model, in
// call order.
func scriptedGenerate(t *testing.T, responses []string, errs []error) generateFunc {
	t.Helper()
	call := 0
	return func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
		require.Less(t, call, len(responses), "more generation calls than scripted responses")
		raw, err := responses[call], errs[call]
		call++
		return raw, err
	}
}

func TestExtract_FirstModelSucceeds(t *testing.T) {
	extractor := NewClauseExtractor(nil,
		ExtractorWithModels([]string{"model-a"}),
		ExtractorWithGenerateFunc(scriptedGenerate(t, []string{clauseJSON}, []error{nil})),
	)

	clauses, errMsg := extractor.Extract(context.Background(), []byte("%PDF-"))

	require.Empty(t, errMsg)
	require.Len(t, clauses, 2)
	assert.Equal(t, "Late Payment Penalty", clauses[0].Topic)
	require.NotNil(t, clauses[0].ClauseID)
	assert.Equal(t, "7.3", *clauses[0].ClauseID)
	assert.Nil(t, clauses[1].ClauseID)
}

func TestExtract_StripsCodeFences(t *testing.T) {
	fenced := "```json\n" + clauseJSON + "\n```"
	extractor := NewClauseExtractor(nil,
		ExtractorWithModels([]string{"model-a"}),
		ExtractorWithGenerateFunc(scriptedGenerate(t, []string{fenced}, []error{nil})),
	)

	clauses, errMsg := extractor.Extract(context.Background(), []byte("%PDF-"))

	require.Empty(t, errMsg)
	assert.Len(t, clauses, 2)
}

func TestExtract_BackfillsMetadataDefaults(t *testing.T) {
	extractor := NewClauseExtractor(nil,
		ExtractorWithModels([]string{"model-a"}),
		ExtractorWithGenerateFunc(scriptedGenerate(t, []string{clauseJSON}, []error{nil})),
	)

	clauses, _ := extractor.Extract(context.Background(), []byte("%PDF-"))

	require.Len(t, clauses, 2)
	// Parsed key wins, the rest of the schema is backfilled.
	assert.Equal(t, "bank", clauses[0].Metadata["penalty_recipient"])
	assert.Equal(t, "unknown", clauses[0].Metadata["profit_basis"])
	assert.Equal(t, false, clauses[0].Metadata["customer_as_agent"])
	assert.Len(t, clauses[0].Metadata, 12)
}

func TestExtract_FallsThroughToNextModel(t *testing.T) {
	extractor := NewClauseExtractor(nil,
		ExtractorWithModels([]string{"model-a", "model-b"}),
		ExtractorWithGenerateFunc(scriptedGenerate(t,
			[]string{"the model rambled instead of returning JSON", clauseJSON},
			[]error{nil, nil})),
	)

	clauses, errMsg := extractor.Extract(context.Background(), []byte("%PDF-"))

	require.Empty(t, errMsg)
	assert.Len(t, clauses, 2)
}

func TestExtract_AllModelsFail(t *testing.T) {
	extractor := NewClauseExtractor(nil,
		ExtractorWithModels([]string{"model-a", "model-b"}),
		ExtractorWithGenerateFunc(scriptedGenerate(t,
			[]string{"", ""},
			[]error{errors.New("quota exceeded"), errors.New("upstream timeout")})),
	)

	clauses, errMsg := extractor.Extract(context.Background(), []byte("%PDF-"))

	assert.Empty(t, clauses)
	require.NotEmpty(t, errMsg)
	// The error names every attempted model and the last failure reason.
	assert.Contains(t, errMsg, "model-a")
	assert.Contains(t, errMsg, "model-b")
	assert.Contains(t, errMsg, "upstream timeout")
}

func TestExtract_ZeroClausesIsNotAnError(t *testing.T) {
	extractor := NewClauseExtractor(nil,
		ExtractorWithModels([]string{"model-a"}),
		ExtractorWithGenerateFunc(scriptedGenerate(t, []string{"[]"}, []error{nil})),
	)

	clauses, errMsg := extractor.Extract(context.Background(), []byte("%PDF-"))

	assert.Empty(t, clauses)
	assert.Empty(t, errMsg, "an empty clause list is a valid extraction result")
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripCodeFences("Sure, here you go:\n```json\n{\"a\":1}\n```"))
}
