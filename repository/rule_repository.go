package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sharia-audit-backend/models"
)

// RuleRepository handles database operations for the rule corpus. The
// audit path only reads; writes happen in the ingestion job.
type RuleRepository struct {
	db *pgxpool.Pool
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// SearchTopMatch returns the single closest rule by cosine distance with
// its full metadata payload, or nil when the index holds no rules.
func (r *RuleRepository) SearchTopMatch(ctx context.Context, embedding []float64) (*models.Rule, error) {
	if len(embedding) != 768 {
		return nil, fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	query := `
		SELECT
			rule_id,
			topic,
			rule_summary,
			rule_text,
			citation,
			severity,
			logic,
			1 - (embedding <=> $1::vector) AS similarity
		FROM rules
		ORDER BY embedding <=> $1::vector
		LIMIT 1`

	rule := &models.Rule{}
	err := r.db.QueryRow(ctx, query, formatVector(embedding)).Scan(
		&rule.RuleID,
		&rule.Topic,
		&rule.RuleSummary,
		&rule.RuleText,
		&rule.Citation,
		&rule.Severity,
		&rule.Logic,
		&rule.Similarity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	return rule, nil
}

// Upsert writes one rule and its passage embedding, keyed by rule_id.
func (r *RuleRepository) Upsert(ctx context.Context, rule *models.Rule, embedding []float64) error {
	if len(embedding) != 768 {
		return fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	query := `
		INSERT INTO rules (
			rule_id, topic, rule_summary, rule_text, citation, severity, logic, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector)
		ON CONFLICT (rule_id) DO UPDATE SET
			topic = EXCLUDED.topic,
			rule_summary = EXCLUDED.rule_summary,
			rule_text = EXCLUDED.rule_text,
			citation = EXCLUDED.citation,
			severity = EXCLUDED.severity,
			logic = EXCLUDED.logic,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		rule.RuleID,
		rule.Topic,
		rule.RuleSummary,
		rule.RuleText,
		rule.Citation,
		rule.Severity,
		rule.Logic,
		formatVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rule %s: %w", rule.RuleID, err)
	}

	return nil
}

// Count returns the number of rules in the corpus.
func (r *RuleRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM rules").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}
