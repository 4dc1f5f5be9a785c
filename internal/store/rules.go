package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pcbuild-backend/internal/compat"
)

const ruleSelect = `SELECT id, rule_number, name, description, severity, message_template, rule_config, is_active
FROM _compat_rules`

func scanRule(sc scanner) (*compat.Rule, error) {
	var r compat.Rule
	var severity string
	var config []byte
	if err := sc.Scan(&r.ID, &r.Number, &r.Name, &r.Description, &severity,
		&r.MessageTemplate, &config, &r.Active); err != nil {
		return nil, err
	}
	r.Severity = compat.Severity(severity)
	r.SetRawConfig(config)
	return &r, nil
}

// ListRules returns every rule ordered by rule number. Rules whose stored
// rule_config does not decode are returned with ConfigErr set.
func (s *Store) ListRules(ctx context.Context) ([]*compat.Rule, error) {
	rows, err := s.DB.QueryContext(ctx, ruleSelect+" ORDER BY rule_number")
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	out := []*compat.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRule returns the rule with the given id, or ErrNotFound.
func (s *Store) GetRule(ctx context.Context, id string) (*compat.Rule, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	r, err := scanRule(s.DB.QueryRowContext(ctx, s.Q(ruleSelect+" WHERE id = $1"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

// CountRules returns the number of stored rules.
func (s *Store) CountRules(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM _compat_rules").Scan(&n); err != nil {
		return 0, fmt.Errorf("count rules: %w", err)
	}
	return n, nil
}

// CreateRule inserts r and assigns its id. A taken rule number yields
// ErrUniqueViolation.
func (s *Store) CreateRule(ctx context.Context, r *compat.Rule) error {
	return s.createRule(ctx, s.DB, r)
}

func (s *Store) createRule(ctx context.Context, q Querier, r *compat.Rule) error {
	config, err := r.RawConfig()
	if err != nil {
		return err
	}
	id := uuid.NewString()
	_, err = q.ExecContext(ctx, s.Q(
		`INSERT INTO _compat_rules (id, rule_number, name, description, severity, message_template, rule_config, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`),
		id, r.Number, r.Name, r.Description, string(r.Severity), r.MessageTemplate, string(config), r.Active)
	if err != nil {
		return fmt.Errorf("create rule %d: %w", r.Number, s.Dialect.MapError(err))
	}
	r.ID = id
	return nil
}

// UpdateRule writes every column of an existing rule.
func (s *Store) UpdateRule(ctx context.Context, r *compat.Rule) error {
	if !validID(r.ID) {
		return ErrNotFound
	}
	config, err := r.RawConfig()
	if err != nil {
		return err
	}
	n, err := Exec(ctx, s.DB, s.Q(fmt.Sprintf(
		`UPDATE _compat_rules SET rule_number = $1, name = $2, description = $3, severity = $4,
		 message_template = $5, rule_config = $6, is_active = $7, updated_at = %s WHERE id = $8`, s.Dialect.NowExpr())),
		r.Number, r.Name, r.Description, string(r.Severity), r.MessageTemplate, string(config), r.Active, r.ID)
	if err != nil {
		return fmt.Errorf("update rule: %w", s.Dialect.MapError(err))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	n, err := Exec(ctx, s.DB, s.Q("DELETE FROM _compat_rules WHERE id = $1"), id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedRules inserts rules in one transaction when the rule table is empty.
// It returns how many rules were written.
func (s *Store) SeedRules(ctx context.Context, rules []*compat.Rule) (int, error) {
	count, err := s.CountRules(ctx)
	if err != nil || count > 0 {
		return 0, err
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("seed rule %d: %w", r.Number, err)
		}
		if err := s.createRule(ctx, tx, r); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return len(rules), nil
}
