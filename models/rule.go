package models

// Rule is one compliance requirement from the AAOIFI reference corpus.
// Logic is a boolean expression over metadata keys; a truthy result means
// the clause violates the rule. Rules are written once by the ingestion
// job and read-only at audit time.
type Rule struct {
	RuleID      string `json:"rule_id"`
	Topic       string `json:"topic"`
	RuleSummary string `json:"rule_summary"`
	RuleText    string `json:"rule_text"`
	Citation    string `json:"citation"`
	Severity    string `json:"severity"`
	Logic       string `json:"logic"`

	// Similarity is the cosine similarity of a retrieval match, populated
	// only on rules returned by the vector search.
	Similarity float64 `json:"similarity,omitempty"`
}
