package compat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RuleType is the discriminant stored in rule_config.type.
type RuleType string

const (
	TypeFieldMatch             RuleType = "field_match"
	TypeFieldLTE               RuleType = "field_lte"
	TypeArrayContains          RuleType = "array_contains"
	TypeArrayContainsFormatted RuleType = "array_contains_formatted"
	TypeSumGTE                 RuleType = "sum_gte"
	TypePairMismatch           RuleType = "pair_mismatch"
)

// RuleTypes lists every supported rule type.
var RuleTypes = []RuleType{
	TypeFieldMatch, TypeFieldLTE, TypeArrayContains,
	TypeArrayContainsFormatted, TypeSumGTE, TypePairMismatch,
}

// RuleConfig is the type-specific part of a rule. The set of implementations
// is closed: only the variants in this package satisfy it.
type RuleConfig interface {
	Type() RuleType
	// Validate reports missing required keys.
	Validate() error

	wire() wireConfig
	// check applies the predicate. fired is false when the rule passes or
	// does not apply to the selection.
	check(sel Selection) (v violation, fired bool)
}

// violation carries the values rendered into the message template.
// template, when set, replaces the rule's message_template.
type violation struct {
	a, b     string
	template string
}

// FieldRef names a specification field on the part selected for a category.
type FieldRef struct {
	Part  string `json:"part"`
	Field string `json:"field"`
}

func (f FieldRef) String() string {
	return f.Part + "." + f.Field
}

func (f FieldRef) complete() bool {
	return f.Part != "" && f.Field != ""
}

// FieldMatch fires when A and B differ.
type FieldMatch struct {
	A, B FieldRef
}

// FieldLTE fires when A is greater than B.
type FieldLTE struct {
	A, B FieldRef
}

// ArrayContains fires when the list at Array does not contain Value.
type ArrayContains struct {
	Value, Array FieldRef
}

// ArrayContainsFormatted is ArrayContains with Value rendered through Format,
// where "{value}" stands for the raw value (e.g. "{value}mm").
type ArrayContainsFormatted struct {
	Value, Array FieldRef
	Format       string
}

// SumGTE fires when the sum of Sum is below Target scaled by Multiplier.
type SumGTE struct {
	Target     FieldRef
	Multiplier float64
	Sum        []FieldRef
}

// PairMismatch fires when (A, B) equals one of the forbidden Pairs.
type PairMismatch struct {
	A, B  FieldRef
	Pairs []Pair
}

// Pair is a forbidden value combination. Msg, when set, replaces the rule's
// message template for this pair.
type Pair struct {
	A   any    `json:"a"`
	B   any    `json:"b"`
	Msg string `json:"msg,omitempty"`
}

func (FieldMatch) Type() RuleType             { return TypeFieldMatch }
func (FieldLTE) Type() RuleType               { return TypeFieldLTE }
func (ArrayContains) Type() RuleType          { return TypeArrayContains }
func (ArrayContainsFormatted) Type() RuleType { return TypeArrayContainsFormatted }
func (SumGTE) Type() RuleType                 { return TypeSumGTE }
func (PairMismatch) Type() RuleType           { return TypePairMismatch }

// requireKeys takes alternating wire key/value pairs and reports the keys
// whose value is empty.
func requireKeys(t RuleType, kv ...string) error {
	var missing []string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			missing = append(missing, kv[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", ErrMalformedRule, t, strings.Join(missing, ", "))
	}
	return nil
}

func refKeys(a, b FieldRef) []string {
	return []string{"part_a", a.Part, "field_a", a.Field, "part_b", b.Part, "field_b", b.Field}
}

func (c FieldMatch) Validate() error { return requireKeys(c.Type(), refKeys(c.A, c.B)...) }
func (c FieldLTE) Validate() error   { return requireKeys(c.Type(), refKeys(c.A, c.B)...) }

func (c ArrayContains) Validate() error {
	return requireKeys(c.Type(), refKeys(c.Value, c.Array)...)
}

func (c ArrayContainsFormatted) Validate() error {
	if err := requireKeys(c.Type(), refKeys(c.Value, c.Array)...); err != nil {
		return err
	}
	if c.Format == "" {
		return fmt.Errorf("%w: %s requires format", ErrMalformedRule, c.Type())
	}
	return nil
}

func (c SumGTE) Validate() error {
	if err := requireKeys(c.Type(), "target_part", c.Target.Part, "target_field", c.Target.Field); err != nil {
		return err
	}
	if len(c.Sum) == 0 {
		return fmt.Errorf("%w: %s requires sum_fields", ErrMalformedRule, c.Type())
	}
	for i, ref := range c.Sum {
		if !ref.complete() {
			return fmt.Errorf("%w: %s sum_fields[%d] needs part and field", ErrMalformedRule, c.Type(), i)
		}
	}
	return nil
}

func (c PairMismatch) Validate() error {
	if err := requireKeys(c.Type(), refKeys(c.A, c.B)...); err != nil {
		return err
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("%w: %s requires pairs", ErrMalformedRule, c.Type())
	}
	return nil
}

// wireConfig is the flat JSON shape of rule_config shared by all types.
type wireConfig struct {
	Type        RuleType   `json:"type"`
	PartA       string     `json:"part_a,omitempty"`
	FieldA      string     `json:"field_a,omitempty"`
	PartB       string     `json:"part_b,omitempty"`
	FieldB      string     `json:"field_b,omitempty"`
	Format      string     `json:"format,omitempty"`
	TargetPart  string     `json:"target_part,omitempty"`
	TargetField string     `json:"target_field,omitempty"`
	Multiplier  *float64   `json:"multiplier,omitempty"`
	SumFields   []FieldRef `json:"sum_fields,omitempty"`
	Pairs       []Pair     `json:"pairs,omitempty"`
}

func (w wireConfig) refA() FieldRef { return FieldRef{Part: w.PartA, Field: w.FieldA} }
func (w wireConfig) refB() FieldRef { return FieldRef{Part: w.PartB, Field: w.FieldB} }

func twoSided(t RuleType, a, b FieldRef) wireConfig {
	return wireConfig{Type: t, PartA: a.Part, FieldA: a.Field, PartB: b.Part, FieldB: b.Field}
}

func (c FieldMatch) wire() wireConfig    { return twoSided(c.Type(), c.A, c.B) }
func (c FieldLTE) wire() wireConfig      { return twoSided(c.Type(), c.A, c.B) }
func (c ArrayContains) wire() wireConfig { return twoSided(c.Type(), c.Value, c.Array) }

func (c ArrayContainsFormatted) wire() wireConfig {
	w := twoSided(c.Type(), c.Value, c.Array)
	w.Format = c.Format
	return w
}

func (c SumGTE) wire() wireConfig {
	m := c.Multiplier
	return wireConfig{
		Type:        c.Type(),
		TargetPart:  c.Target.Part,
		TargetField: c.Target.Field,
		Multiplier:  &m,
		SumFields:   c.Sum,
	}
}

func (c PairMismatch) wire() wireConfig {
	w := twoSided(c.Type(), c.A, c.B)
	w.Pairs = c.Pairs
	return w
}

// DecodeConfig parses a stored rule_config into its variant and validates
// the keys the variant requires. Every failure wraps ErrMalformedRule.
func DecodeConfig(raw []byte) (RuleConfig, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: rule_config is required", ErrMalformedRule)
	}
	var w wireConfig
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}

	var cfg RuleConfig
	switch w.Type {
	case TypeFieldMatch:
		cfg = FieldMatch{A: w.refA(), B: w.refB()}
	case TypeFieldLTE:
		cfg = FieldLTE{A: w.refA(), B: w.refB()}
	case TypeArrayContains:
		cfg = ArrayContains{Value: w.refA(), Array: w.refB()}
	case TypeArrayContainsFormatted:
		cfg = ArrayContainsFormatted{Value: w.refA(), Array: w.refB(), Format: w.Format}
	case TypeSumGTE:
		m := 1.0
		if w.Multiplier != nil && *w.Multiplier > 0 {
			m = *w.Multiplier
		}
		cfg = SumGTE{Target: FieldRef{Part: w.TargetPart, Field: w.TargetField}, Multiplier: m, Sum: w.SumFields}
	case TypePairMismatch:
		cfg = PairMismatch{A: w.refA(), B: w.refB(), Pairs: w.Pairs}
	case "":
		return nil, fmt.Errorf("%w: rule_config.type is required", ErrMalformedRule)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownRuleType, w.Type)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodeConfig renders a variant back to its stored JSON form.
func EncodeConfig(cfg RuleConfig) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: rule_config is required", ErrMalformedRule)
	}
	return json.Marshal(cfg.wire())
}
