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

// defaultExplainerModels is the candidate chain for explanation calls.
var defaultExplainerModels = []string{
	"gemini-flash-latest",
	"gemini-2.0-flash",
}

// ComplianceExplainer generates natural-language reasoning for verdicts.
// It degrades gracefully: when every candidate model fails, a templated
// fallback embedding the verdict status is returned, never an error. The
// audit pipeline must not block on explanation failures.
type ComplianceExplainer struct {
	client   *genai.Client
	models   []string
	generate generateFunc
}

// ComplianceExplainerOption is a functional option for ComplianceExplainer.
type ComplianceExplainerOption func(*ComplianceExplainer)

// ExplainerWithModels overrides the candidate model chain.
func ExplainerWithModels(models []string) ComplianceExplainerOption {
	return func(x *ComplianceExplainer) {
		x.models = models
	}
}

// ExplainerWithGenerateFunc overrides the generation call (used in tests).
func ExplainerWithGenerateFunc(fn generateFunc) ComplianceExplainerOption {
	return func(x *ComplianceExplainer) {
		x.generate = fn
	}
}

// NewComplianceExplainer creates a new compliance explainer.
func NewComplianceExplainer(client *genai.Client, opts ...ComplianceExplainerOption) *ComplianceExplainer {
	x := &ComplianceExplainer{
		client:   client,
		models:   defaultExplainerModels,
		generate: generateWithClient(client),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Explain produces reasoning and a suggested contractual fix for one
// verdict. Metadata and logic give the model the evaluated facts to quote.
func (x *ComplianceExplainer) Explain(
	ctx context.Context,
	clauseText, ruleText string,
	status models.VerdictStatus,
	metadata models.MetadataRecord,
	logic string,
) models.Explanation {
	metadataJSON, _ := json.Marshal(metadata)

	prompt := fmt.Sprintf(`You are an elite AAOIFI Sharia Auditor. Your goal is to provide a microscopic audit of a Murabahah contract clause.

INPUT DATA:
- Audited Contract Clause: "%s"
- AAOIFI Sharia Standard: "%s"
- System Verdict: %s
- Extracted Facts: %s
- Evaluated Logic: %s

YOUR TASK:
1. REASONING:
   - If status is FAIL: Explicitly quote the problematic phrase from the 'Audited Contract Clause'. Explain exactly why it contradicts the 'AAOIFI Sharia Standard'. Use phrases like "Your contract states '...', which is non-compliant because..."
   - If status is PASS: Confirm how the specific phrasing in the clause aligns with the AAOIFI requirement.

2. SUGGESTION:
   - Provide the exact corrected contractual wording that would make this clause 100%% Sharia compliant while maintaining the bank's legal intent.

OUTPUT FORMAT (JSON ONLY):
{
    "reasoning": "Detailed comparative analysis here...",
    "suggestion": "Corrected contractual wording here..."
}`, clauseText, ruleText, status, metadataJSON, logic)

	var explanation models.Explanation
	if x.runChain(ctx, prompt, &explanation) && explanation.Reasoning != "" {
		return explanation
	}

	return models.Explanation{
		Reasoning:  fmt.Sprintf("Audit complete. Phrasing evaluated against AAOIFI standards. Verdict: %s.", status),
		Suggestion: "Review the cited AAOIFI standard for precise wording updates.",
	}
}

// DeepExplain produces the contextual, cross-clause analysis for one
// target clause against every clause extracted in the run.
func (x *ComplianceExplainer) DeepExplain(
	ctx context.Context,
	target models.Clause,
	all []models.Clause,
	ruleText string,
) models.DeepExplanation {
	var contractView strings.Builder
	for _, clause := range all {
		fmt.Fprintf(&contractView, "[%s] %s: %s\n", clause.ID, clause.Topic, clause.Text)
	}

	prompt := fmt.Sprintf(`You are an elite AAOIFI Sharia Auditor performing a contextual audit of one clause within a full Murabaha contract.

TARGET CLAUSE [%s] (%s):
"%s"

APPLICABLE AAOIFI STANDARD:
"%s"

FULL CONTRACT CLAUSES:
%s

YOUR TASK (JSON ONLY):
{
    "deep_reasoning": "How the target clause behaves in the context of the whole contract...",
    "sharia_foundations": "The fiqh principles and AAOIFI foundations that govern this clause...",
    "inter_clause_conflicts": "Any other clause in the contract that conflicts with or undermines the target clause, cited by its id..."
}`, target.ID, target.Topic, target.Text, ruleText, contractView.String())

	var deep models.DeepExplanation
	if x.runChain(ctx, prompt, &deep) && deep.DeepReasoning != "" {
		return deep
	}

	return models.DeepExplanation{
		DeepReasoning:        fmt.Sprintf("Contextual audit complete for clause %s. The clause was evaluated against AAOIFI standards within the full contract.", target.ID),
		ShariaFoundations:    "Refer to the cited AAOIFI standard for the governing Sharia foundations.",
		InterClauseConflicts: "No automated cross-clause analysis available.",
	}
}

// runChain walks the candidate models until one yields a response whose
// first brace-delimited JSON object decodes into out. Failures are logged
// and swallowed; false means the chain was exhausted.
func (x *ComplianceExplainer) runChain(ctx context.Context, prompt string, out interface{}) bool {
	for _, model := range x.models {
		raw, err := x.generate(ctx, model, genai.Text(prompt))
		if err != nil {
			log.Printf("[explainer] model %s failed: %v", model, err)
			continue
		}

		object, err := extractJSONObject(stripCodeFences(raw))
		if err != nil {
			log.Printf("[explainer] model %s returned no JSON object: %v", model, err)
			continue
		}

		if err := json.Unmarshal([]byte(object), out); err != nil {
			log.Printf("[explainer] model %s returned undecodable JSON: %v", model, err)
			continue
		}
		return true
	}
	return false
}
