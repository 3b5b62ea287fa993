// Package policy classifies assistant replies using a rego policy. Keeping
// the heuristic in a policy document lets it be swapped for a real classifier
// without touching the orchestrator.
package policy

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA advice-classification engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.advice_policy.decision"),
		rego.Module("advice_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// ContainsAdvice reports whether the reply text carries actionable dietary
// advice according to the loaded policy. Evaluation failures fail closed to
// false and are logged for diagnostics only.
func (e *Engine) ContainsAdvice(ctx context.Context, reply string) bool {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"reply": reply,
	}))
	if err != nil {
		log.Printf("WARN: advice policy evaluation failed: %v", err)
		return false
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}
	decision, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return false
	}
	return decision == "advice"
}

// DefaultPolicy matches the advice-indicating phrases the assistant tends to
// produce. This is a heuristic, not a guarantee.
const DefaultPolicy = `
package advice_policy

import rego.v1

default decision := "none"

decision := "advice" if contains(input.reply, "建议")

decision := "advice" if contains(input.reply, "推荐")

decision := "advice" if contains(input.reply, "可以尝试")

decision := "advice" if contains(input.reply, "应该")

decision := "advice" if contains(input.reply, "营养")

decision := "advice" if contains(input.reply, "健康")

decision := "advice" if contains(input.reply, "饮食计划")
`
