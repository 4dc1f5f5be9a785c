package compat

import (
	"sort"

	"go.uber.org/zap"
)

// Evaluator checks selections against rule sets. It holds no mutable state;
// one Evaluator may be shared by any number of goroutines.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator that reports skipped malformed rules to
// logger. A nil logger discards them.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

var defaultEvaluator = NewEvaluator(nil)

// Evaluate runs rules against sel with a logger-less Evaluator.
func Evaluate(sel Selection, rules []*Rule) ([]Issue, error) {
	return defaultEvaluator.Evaluate(sel, rules)
}

// Evaluate returns the issues produced by the active rules, ordered by rule
// number. Rules referencing a part that is not selected are skipped, as are
// malformed rules, which are logged instead of reported as issues.
//
// The only error is ErrInvalidSelection; the returned slice is never nil
// on success.
func (e *Evaluator) Evaluate(sel Selection, rules []*Rule) ([]Issue, error) {
	present, err := sel.Present()
	if err != nil {
		return nil, err
	}

	evaluationsTotal.Inc()
	issues := []Issue{}
	if len(present) < 2 {
		return issues, nil
	}

	for _, r := range orderedActive(rules) {
		if err := r.checkEvaluable(); err != nil {
			e.logger.Warn("Skipping malformed compatibility rule",
				zap.Int("rule_number", r.Number),
				zap.String("rule_name", r.Name),
				zap.Error(err),
			)
			rulesSkippedTotal.WithLabelValues("malformed").Inc()
			continue
		}

		v, fired := r.Config.check(present)
		if !fired {
			continue
		}

		template := r.MessageTemplate
		if v.template != "" {
			template = v.template
		}
		issues = append(issues, Issue{
			Severity:   r.Severity,
			Message:    Render(template, v.a, v.b),
			RuleNumber: r.Number,
		})
		issuesTotal.WithLabelValues(string(r.Severity)).Inc()
	}
	return issues, nil
}

// orderedActive returns the active rules sorted by rule number without
// touching the caller's slice.
func orderedActive(rules []*Rule) []*Rule {
	out := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil && r.Active {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Number < out[j].Number
	})
	return out
}

// CountBySeverity tallies issues into error and warning counts.
func CountBySeverity(issues []Issue) (errors, warnings int) {
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}
