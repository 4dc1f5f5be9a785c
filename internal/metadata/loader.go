package metadata

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pcbuild-backend/internal/compat"
)

// RuleSource lists persisted rules.
type RuleSource interface {
	ListRules(ctx context.Context) ([]*compat.Rule, error)
}

// LoadAll reads all rules from src and populates the registry. Rules whose
// rule_config does not decode are kept (admins still see them) and reported.
func LoadAll(ctx context.Context, src RuleSource, reg *Registry, logger *zap.Logger) error {
	rules, err := src.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	active := 0
	for _, r := range rules {
		if r.Active {
			active++
		}
		if err := r.ConfigErr(); err != nil {
			logger.Warn("Rule has an invalid rule_config",
				zap.Int("rule_number", r.Number),
				zap.String("rule_id", r.ID),
				zap.Error(err),
			)
		}
	}
	reg.Load(rules)

	logger.Info("Loaded compatibility rules into registry",
		zap.Int("rules", len(rules)), zap.Int("active", active))
	return nil
}

// Reload is an alias for LoadAll, called after admin mutations.
func Reload(ctx context.Context, src RuleSource, reg *Registry, logger *zap.Logger) error {
	return LoadAll(ctx, src, reg, logger)
}
