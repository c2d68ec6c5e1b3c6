package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharia-audit-backend/models"
)

func TestExplain_ParsesCleanJSON(t *testing.T) {
	explainer := NewComplianceExplainer(nil,
		ExplainerWithModels([]string{"model-a"}),
		ExplainerWithGenerateFunc(func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
			return `{"reasoning": "The penalty flows to the bank.", "suggestion": "Route penalties to charity."}`, nil
		}),
	)

	explanation := explainer.Explain(context.Background(),
		"clause text", "rule text", models.VerdictFail, models.DefaultMetadata(), "penalty_recipient != 'charity'")

	assert.Equal(t, "The penalty flows to the bank.", explanation.Reasoning)
	assert.Equal(t, "Route penalties to charity.", explanation.Suggestion)
}

func TestExplain_ToleratesProseAroundJSON(t *testing.T) {
	explainer := NewComplianceExplainer(nil,
		ExplainerWithModels([]string{"model-a"}),
		ExplainerWithGenerateFunc(func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
			return "Here is my audit:\n{\"reasoning\": \"ok\", \"suggestion\": \"fix\"}\nLet me know if you need more.", nil
		}),
	)

	explanation := explainer.Explain(context.Background(),
		"clause", "rule", models.VerdictPass, models.DefaultMetadata(), "")

	assert.Equal(t, "ok", explanation.Reasoning)
	assert.Equal(t, "fix", explanation.Suggestion)
}

func TestExplain_FallsBackWhenChainExhausted(t *testing.T) {
	explainer := NewComplianceExplainer(nil,
		ExplainerWithModels([]string{"model-a", "model-b"}),
		ExplainerWithGenerateFunc(func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
			return "", errors.New("unavailable")
		}),
	)

	explanation := explainer.Explain(context.Background(),
		"clause", "rule", models.VerdictFail, models.DefaultMetadata(), "")

	require.NotEmpty(t, explanation.Reasoning)
	assert.Contains(t, explanation.Reasoning, "FAIL", "fallback text embeds the verdict status")
	assert.NotEmpty(t, explanation.Suggestion)
}

func TestExplain_AdvancesPastUnparseableResponse(t *testing.T) {
	call := 0
	explainer := NewComplianceExplainer(nil,
		ExplainerWithModels([]string{"model-a", "model-b"}),
		ExplainerWithGenerateFunc(func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
			call++
			if call == 1 {
				return "no json here", nil
			}
			return `{"reasoning": "second model", "suggestion": "s"}`, nil
		}),
	)

	explanation := explainer.Explain(context.Background(),
		"clause", "rule", models.VerdictPass, models.DefaultMetadata(), "")

	assert.Equal(t, "second model", explanation.Reasoning)
	assert.Equal(t, 2, call)
}

func TestDeepExplain_ParsesContextualResponse(t *testing.T) {
	explainer := NewComplianceExplainer(nil,
		ExplainerWithModels([]string{"model-a"}),
		ExplainerWithGenerateFunc(func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
			return "```json\n{\"deep_reasoning\": \"dr\", \"sharia_foundations\": \"sf\", \"inter_clause_conflicts\": \"cl_2 conflicts\"}\n```", nil
		}),
	)

	target := models.Clause{ID: "cl_0", Topic: "Penalty", Text: "text", Metadata: models.DefaultMetadata()}
	deep := explainer.DeepExplain(context.Background(), target, []models.Clause{target}, "rule text")

	assert.Equal(t, "dr", deep.DeepReasoning)
	assert.Equal(t, "sf", deep.ShariaFoundations)
	assert.Equal(t, "cl_2 conflicts", deep.InterClauseConflicts)
}

func TestDeepExplain_FallsBackWhenChainExhausted(t *testing.T) {
	explainer := NewComplianceExplainer(nil,
		ExplainerWithModels([]string{"model-a"}),
		ExplainerWithGenerateFunc(func(ctx context.Context, model string, parts ...genai.Part) (string, error) {
			return "", errors.New("unavailable")
		}),
	)

	target := models.Clause{ID: "cl_3", Topic: "Agency", Text: "text", Metadata: models.DefaultMetadata()}
	deep := explainer.DeepExplain(context.Background(), target, []models.Clause{target}, "rule text")

	assert.Contains(t, deep.DeepReasoning, "cl_3")
	assert.NotEmpty(t, deep.ShariaFoundations)
}

func TestExtractJSONObject(t *testing.T) {
	object, err := extractJSONObject(`prose {"a": {"b": 1}} trailing`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, object)

	_, err = extractJSONObject("no braces at all")
	assert.Error(t, err)
}
