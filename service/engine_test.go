package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sharia-audit-backend/models"
)

func fullMetadata(overrides models.MetadataRecord) models.MetadataRecord {
	return models.MergeMetadata(overrides)
}

func TestEvaluate_PenaltyToBank_Fails(t *testing.T) {
	engine := NewRuleEngine()

	failed := engine.Evaluate("MRB-001", "penalty_recipient != 'charity'",
		fullMetadata(models.MetadataRecord{"penalty_recipient": "bank"}))

	assert.True(t, failed, "penalty routed to the bank violates the charity requirement")
}

func TestEvaluate_PenaltyToCharity_Passes(t *testing.T) {
	engine := NewRuleEngine()

	failed := engine.Evaluate("MRB-001", "penalty_recipient != 'charity'",
		fullMetadata(models.MetadataRecord{"penalty_recipient": "charity"}))

	assert.False(t, failed)
}

// The rule corpus phrases logic as the violating condition: a truthy
// expression means FAIL, even when the bare variable reads like a good
// thing. The evaluator preserves that contract literally.
func TestEvaluate_BareVariable_TruthyMeansFail(t *testing.T) {
	engine := NewRuleEngine()

	failed := engine.Evaluate("MRB-004", "possession_acquired_before_sale",
		fullMetadata(models.MetadataRecord{"possession_acquired_before_sale": true}))

	assert.True(t, failed)
}

func TestEvaluate_BooleanConnectives(t *testing.T) {
	engine := NewRuleEngine()
	metadata := fullMetadata(models.MetadataRecord{
		"profit_basis":          "future_variable",
		"is_fixed_at_signature": false,
	})

	assert.True(t, engine.Evaluate("MRB-002",
		"profit_basis == 'future_variable' or not is_fixed_at_signature", metadata))
	assert.False(t, engine.Evaluate("MRB-002",
		"profit_basis == 'fixed' and is_fixed_at_signature", metadata))
}

func TestEvaluate_MembershipTest(t *testing.T) {
	engine := NewRuleEngine()
	metadata := fullMetadata(models.MetadataRecord{"insurance_payer_pre_sale": "customer"})

	assert.True(t, engine.Evaluate("MRB-007",
		"insurance_payer_pre_sale in ['customer', 'unknown']", metadata))
}

func TestEvaluate_FailClosed(t *testing.T) {
	engine := NewRuleEngine()
	metadata := fullMetadata(nil)

	cases := map[string]string{
		"empty expression":   "",
		"undeclared name":    "undeclared_variable == 'x'",
		"syntax error":       "penalty_recipient !=",
		"type mismatch":      "is_fixed_at_signature > 3",
		"non-boolean result": "1 + 1",
	}

	for name, logic := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, engine.Evaluate("MRB-ERR", logic, metadata),
				"unevaluable logic must default to FAIL")
		})
	}
}

func TestEvaluate_NeverPanics(t *testing.T) {
	engine := NewRuleEngine()

	assert.NotPanics(t, func() {
		engine.Evaluate("MRB-ERR", "((", fullMetadata(nil))
		engine.Evaluate("MRB-ERR", "penalty_recipient('call')", fullMetadata(nil))
		engine.Evaluate("MRB-ERR", "x.y.z", fullMetadata(nil))
	})
}
