package compat

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultPublishPolicy allows publishing when no error-severity issue exists.
const DefaultPublishPolicy = "errors == 0"

// PublishPolicy decides whether a build with a given issue list may be
// published. The expression sees errors, warnings (counts) and issues.
type PublishPolicy struct {
	expression string
	program    *vm.Program
}

func policyEnv(issues []Issue) map[string]any {
	errs, warns := CountBySeverity(issues)
	if issues == nil {
		issues = []Issue{}
	}
	return map[string]any{
		"errors":   errs,
		"warnings": warns,
		"issues":   issues,
	}
}

// NewPublishPolicy compiles a boolean policy expression. An empty expression
// selects DefaultPublishPolicy.
func NewPublishPolicy(expression string) (*PublishPolicy, error) {
	if strings.TrimSpace(expression) == "" {
		expression = DefaultPublishPolicy
	}
	prog, err := expr.Compile(expression, expr.Env(policyEnv(nil)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile publish policy: %w", err)
	}
	return &PublishPolicy{expression: expression, program: prog}, nil
}

func (p *PublishPolicy) String() string {
	return p.expression
}

// Allows evaluates the policy against issues.
func (p *PublishPolicy) Allows(issues []Issue) (bool, error) {
	out, err := expr.Run(p.program, policyEnv(issues))
	if err != nil {
		return false, fmt.Errorf("evaluate publish policy: %w", err)
	}
	allowed, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("publish policy returned %T, want bool", out)
	}
	return allowed, nil
}
