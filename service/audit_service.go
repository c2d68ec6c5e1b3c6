package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"sharia-audit-backend/models"
)

var ErrClauseNotFound = errors.New("target clause not found")

// Extractor turns an uploaded contract into an ordered clause list. A
// non-empty error string means extraction infrastructure failure.
type Extractor interface {
	Extract(ctx context.Context, document []byte) ([]models.Clause, string)
}

// Retriever finds the best-matching rule for one clause, nil on a miss.
type Retriever interface {
	Retrieve(ctx context.Context, clauseText string) (*models.Rule, error)
}

// Engine evaluates rule logic; true means the clause fails the rule.
type Engine interface {
	Evaluate(ruleID, logic string, metadata models.MetadataRecord) bool
}

// Explainer generates verdict reasoning and contextual analyses.
type Explainer interface {
	Explain(ctx context.Context, clauseText, ruleText string, status models.VerdictStatus, metadata models.MetadataRecord, logic string) models.Explanation
	DeepExplain(ctx context.Context, target models.Clause, all []models.Clause, ruleText string) models.DeepExplanation
}

// heartbeatMessages cycle on the stream while the extraction call is
// outstanding. Cosmetic only; they never alter the data flow.
var heartbeatMessages = []string{
	"Synthesizing Sharia intent...",
	"Mapping legal cross-references...",
	"Verifying AAOIFI compliance nodes...",
}

const defaultHeartbeatInterval = 2 * time.Second

// AuditService sequences extraction, retrieval, rule evaluation and
// explanation for one uploaded contract and emits the audit event stream.
// Each run owns its own clause list and identifier counter; nothing is
// shared across concurrent audits and nothing is persisted.
type AuditService struct {
	extractor Extractor
	retriever Retriever
	engine    Engine
	explainer Explainer
	heartbeat time.Duration
}

// AuditServiceOption is a functional option for AuditService.
type AuditServiceOption func(*AuditService)

// AuditWithExtractor sets the clause extractor.
func AuditWithExtractor(e Extractor) AuditServiceOption {
	return func(s *AuditService) {
		s.extractor = e
	}
}

// AuditWithRetriever sets the rule retriever.
func AuditWithRetriever(r Retriever) AuditServiceOption {
	return func(s *AuditService) {
		s.retriever = r
	}
}

// AuditWithEngine sets the rule engine.
func AuditWithEngine(e Engine) AuditServiceOption {
	return func(s *AuditService) {
		s.engine = e
	}
}

// AuditWithExplainer sets the compliance explainer.
func AuditWithExplainer(x Explainer) AuditServiceOption {
	return func(s *AuditService) {
		s.explainer = x
	}
}

// AuditWithHeartbeatInterval sets the progress-notification cadence used
// while extraction is outstanding.
func AuditWithHeartbeatInterval(d time.Duration) AuditServiceOption {
	return func(s *AuditService) {
		s.heartbeat = d
	}
}

// NewAuditService creates a new audit service.
func NewAuditService(opts ...AuditServiceOption) *AuditService {
	s := &AuditService{
		engine:    NewRuleEngine(),
		heartbeat: defaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmitFunc delivers one event to the stream consumer. It returns false
// when the consumer is gone, at which point the run stops issuing further
// external calls.
type EmitFunc func(models.AuditEvent) bool

// Run audits one contract. Clauses are processed strictly sequentially in
// extraction order, so emitted events always match that order. Exactly one
// terminal event (error or complete) ends every run that the consumer
// stays connected for; per-clause failures are absorbed and never abort
// the loop. Only extraction-level failure is pipeline-fatal.
func (s *AuditService) Run(ctx context.Context, document []byte, emit EmitFunc) {
	runID := uuid.New()
	log.Printf("[audit %s] starting run (%d bytes)", runID, len(document))

	if !emit(processing("Successfully received file. Reading content...")) {
		return
	}
	if !emit(processing("AI is analyzing document structure...")) {
		return
	}
	if !emit(processing("Extracting semantic Murabaha clauses...")) {
		return
	}

	clauses, errMsg, ok := s.extractWithHeartbeat(ctx, document, emit)
	if !ok {
		log.Printf("[audit %s] consumer gone or cancelled during extraction", runID)
		return
	}

	if errMsg != "" {
		log.Printf("[audit %s] extraction failed: %s", runID, errMsg)
		emit(models.AuditEvent{Status: models.StatusError, Message: errMsg})
		return
	}
	if len(clauses) == 0 {
		log.Printf("[audit %s] extractor returned 0 clauses", runID)
		emit(models.AuditEvent{
			Status:  models.StatusError,
			Message: "AI analysis complete, but no Murabaha-related clauses were identified in this document.",
		})
		return
	}

	// Session-local identifiers, assigned in extraction order.
	for i := range clauses {
		clauses[i].ID = fmt.Sprintf("cl_%d", i)
	}
	if !emit(models.AuditEvent{Status: models.StatusClausesExtracted, Data: clauses}) {
		return
	}

	for _, clause := range clauses {
		if ctx.Err() != nil {
			log.Printf("[audit %s] cancelled before clause %s", runID, clause.ID)
			return
		}

		if !emit(models.AuditEvent{
			Status:  models.StatusRetrieving,
			Message: fmt.Sprintf("Cross-referencing %s...", clause.Topic),
		}) {
			return
		}

		rule, err := s.retriever.Retrieve(ctx, clause.Text)
		if err != nil {
			log.Printf("[audit %s] retrieval failed for %s: %v (skipping clause)", runID, clause.ID, err)
			continue
		}
		if rule == nil {
			log.Printf("[audit %s] no rule match for %s (skipping clause)", runID, clause.ID)
			continue
		}

		status := models.VerdictPass
		if s.engine.Evaluate(rule.RuleID, rule.Logic, clause.Metadata) {
			status = models.VerdictFail
		}

		verdict := models.Verdict{
			ID:            clause.ID,
			ClauseID:      clause.ClauseID,
			RuleID:        rule.RuleID,
			Topic:         rule.Topic,
			Status:        status,
			Severity:      rule.Severity,
			Citation:      rule.Citation,
			ExactRuleText: rule.RuleText,
			OriginalText:  clause.Text,
		}
		if !emit(models.AuditEvent{Status: models.StatusVerdict, Data: verdict}) {
			return
		}

		if !emit(processing(fmt.Sprintf("Generating Sharia reasoning for %s...", clause.Topic))) {
			return
		}

		explanation := s.explainer.Explain(ctx, clause.Text, rule.RuleText, status, clause.Metadata, rule.Logic)
		payload := models.ReasoningPayload{
			ID:          clause.ID,
			Explanation: explanation.Reasoning,
			Reasoning:   explanation.Reasoning,
			Suggestion:  explanation.Suggestion,
			Metadata:    clause.Metadata,
			LogicStr:    rule.Logic,
		}
		if payload.Explanation == "" {
			payload.Explanation = rule.RuleSummary
		}
		if !emit(models.AuditEvent{Status: models.StatusReasoning, Data: payload}) {
			return
		}
	}

	log.Printf("[audit %s] run complete (%d clauses)", runID, len(clauses))
	emit(models.AuditEvent{Status: models.StatusComplete, Message: "Full Audit Complete."})
}

// extractWithHeartbeat runs the extraction call while a ticker emits
// cycling progress phrases. The heartbeat terminates as soon as the
// extraction result arrives; it reads no shared evaluation state. ok is
// false when the consumer disconnected or the context was cancelled.
func (s *AuditService) extractWithHeartbeat(ctx context.Context, document []byte, emit EmitFunc) (clauses []models.Clause, errMsg string, ok bool) {
	type extraction struct {
		clauses []models.Clause
		errMsg  string
	}

	done := make(chan extraction, 1)
	go func() {
		c, e := s.extractor.Extract(ctx, document)
		done <- extraction{clauses: c, errMsg: e}
	}()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case result := <-done:
			return result.clauses, result.errMsg, true
		case <-ticker.C:
			if !emit(processing(heartbeatMessages[i%len(heartbeatMessages)])) {
				return nil, "", false
			}
		case <-ctx.Done():
			return nil, "", false
		}
	}
}

// DeepExplain runs the contextual cross-clause analysis for one target
// clause, independent of the streaming pipeline.
func (s *AuditService) DeepExplain(ctx context.Context, targetID string, clauses []models.Clause, ruleText string) (models.DeepExplanation, error) {
	for _, clause := range clauses {
		if clause.ID == targetID {
			return s.explainer.DeepExplain(ctx, clause, clauses, ruleText), nil
		}
	}
	return models.DeepExplanation{}, ErrClauseNotFound
}

func processing(message string) models.AuditEvent {
	return models.AuditEvent{Status: models.StatusProcessing, Message: message}
}
