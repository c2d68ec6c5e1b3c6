package models

// AuditStatus tags one event on the audit stream.
type AuditStatus string

const (
	StatusProcessing       AuditStatus = "processing"
	StatusClausesExtracted AuditStatus = "clauses_extracted"
	StatusRetrieving       AuditStatus = "retrieving"
	StatusVerdict          AuditStatus = "verdict"
	StatusReasoning        AuditStatus = "reasoning"
	StatusError            AuditStatus = "error"
	StatusComplete         AuditStatus = "complete"
)

// AuditEvent is one server-sent event on the audit stream. Message carries
// human-readable progress text; Data carries the typed payload for
// clauses_extracted ([]Clause), verdict (Verdict) and reasoning
// (ReasoningPayload) events.
type AuditEvent struct {
	Status  AuditStatus `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Terminal reports whether the event ends the stream. A run emits exactly
// one terminal event: error or complete, never both.
func (e AuditEvent) Terminal() bool {
	return e.Status == StatusError || e.Status == StatusComplete
}

// ReasoningPayload joins an explanation back to a previously emitted
// verdict through the shared clause ID.
type ReasoningPayload struct {
	ID          string         `json:"id"`
	Explanation string         `json:"explanation"`
	Reasoning   string         `json:"reasoning"`
	Suggestion  string         `json:"suggestion"`
	Metadata    MetadataRecord `json:"metadata,omitempty"`
	LogicStr    string         `json:"logic_str,omitempty"`
}
