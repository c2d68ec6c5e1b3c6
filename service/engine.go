package service

import (
	"log"

	"github.com/expr-lang/expr"

	"sharia-audit-backend/models"
)

// RuleEngine evaluates rule logic expressions against clause metadata.
//
// Evaluate returns true when the rule FAILS (the clause is non-compliant).
// Any evaluation error (empty or malformed expression, reference to a
// variable outside the metadata schema, type mismatch) also returns true:
// when compliance logic cannot be evaluated, the clause is flagged rather
// than silently passed. Errors never escape the engine boundary.
type RuleEngine struct{}

// NewRuleEngine creates a new rule engine.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

// Evaluate runs one logic expression with the metadata record as its only
// environment. The expression grammar is the expr operator set (boolean
// connectives, comparisons, membership, arithmetic) over the supplied
// bindings; there is no access to ambient state or callables.
func (e *RuleEngine) Evaluate(ruleID, logic string, metadata models.MetadataRecord) bool {
	env := map[string]interface{}(metadata)

	program, err := expr.Compile(logic, expr.Env(env), expr.AsBool())
	if err != nil {
		log.Printf("[engine] rule %s: compile error for %q: %v (defaulting to FAIL)", ruleID, logic, err)
		return true
	}

	out, err := expr.Run(program, env)
	if err != nil {
		log.Printf("[engine] rule %s: runtime error for %q: %v (defaulting to FAIL)", ruleID, logic, err)
		return true
	}

	failed, ok := out.(bool)
	if !ok {
		log.Printf("[engine] rule %s: non-boolean result for %q (defaulting to FAIL)", ruleID, logic)
		return true
	}

	log.Printf("[engine] rule %s: %q with %v -> %s", ruleID, logic, metadata, verdictWord(failed))
	return failed
}

func verdictWord(failed bool) string {
	if failed {
		return "FAIL"
	}
	return "PASS"
}
