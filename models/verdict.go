package models

// VerdictStatus is the compliance outcome for one clause.
type VerdictStatus string

const (
	VerdictPass VerdictStatus = "PASS"
	VerdictFail VerdictStatus = "FAIL"
)

// Verdict is the result of evaluating one clause against its best-matched
// rule. Status is FAIL exactly when the rule logic evaluated truthy against
// the clause metadata, or when evaluation itself errored (fail-closed).
// Verdicts are streamed and discarded, never persisted.
type Verdict struct {
	ID            string        `json:"id"`
	ClauseID      *string       `json:"clause_id,omitempty"`
	RuleID        string        `json:"rule_id"`
	Topic         string        `json:"topic"`
	Status        VerdictStatus `json:"status"`
	Severity      string        `json:"severity"`
	Citation      string        `json:"citation"`
	ExactRuleText string        `json:"exact_rule_text"`
	OriginalText  string        `json:"original_text"`
}

// Explanation is the AI-generated reasoning and suggested remediation for
// a single verdict.
type Explanation struct {
	Reasoning  string `json:"reasoning"`
	Suggestion string `json:"suggestion"`
}

// DeepExplanation is the contextual, cross-clause variant produced on
// demand for one target clause against the full clause set.
type DeepExplanation struct {
	DeepReasoning        string `json:"deep_reasoning"`
	ShariaFoundations    string `json:"sharia_foundations"`
	InterClauseConflicts string `json:"inter_clause_conflicts"`
}
