package compat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSelection is returned when the selection itself is unusable.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrMalformedRule marks a rule whose configuration cannot be evaluated.
	ErrMalformedRule = errors.New("malformed rule")
	// ErrUnknownRuleType is a malformed rule with an unrecognized type tag.
	ErrUnknownRuleType = fmt.Errorf("%w: unknown rule type", ErrMalformedRule)
)

// Severity classifies an issue. Error issues block publishing a build.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarning
}

// Rule is a persisted compatibility rule.
type Rule struct {
	ID              string     `json:"id,omitempty"`
	Number          int        `json:"rule_number"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Severity        Severity   `json:"severity"`
	MessageTemplate string     `json:"message_template"`
	Active          bool       `json:"is_active"`
	Config          RuleConfig `json:"-"`

	// rawConfig keeps the stored rule_config when it failed to decode, so the
	// rule still round-trips through admin listings.
	rawConfig json.RawMessage
	configErr error
}

// Issue is a single compatibility finding.
type Issue struct {
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	RuleNumber int      `json:"-"`
}

type ruleJSON struct {
	ID              string          `json:"id,omitempty"`
	Number          int             `json:"rule_number"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Severity        Severity        `json:"severity"`
	MessageTemplate string          `json:"message_template"`
	Active          *bool           `json:"is_active,omitempty"`
	Config          json.RawMessage `json:"rule_config"`
}

// UnmarshalJSON decodes a rule. A bad rule_config does not fail the decode:
// the error is kept on the rule and reported when the rule is evaluated.
// An omitted is_active means active.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Rule{
		ID:              raw.ID,
		Number:          raw.Number,
		Name:            raw.Name,
		Description:     raw.Description,
		Severity:        raw.Severity,
		MessageTemplate: raw.MessageTemplate,
		Active:          raw.Active == nil || *raw.Active,
	}
	r.SetRawConfig(raw.Config)
	return nil
}

func (r Rule) MarshalJSON() ([]byte, error) {
	active := r.Active
	out := ruleJSON{
		ID:              r.ID,
		Number:          r.Number,
		Name:            r.Name,
		Description:     r.Description,
		Severity:        r.Severity,
		MessageTemplate: r.MessageTemplate,
		Active:          &active,
		Config:          r.rawConfig,
	}
	if r.Config != nil {
		cfg, err := EncodeConfig(r.Config)
		if err != nil {
			return nil, err
		}
		out.Config = cfg
	}
	if len(out.Config) == 0 {
		out.Config = json.RawMessage("null")
	}
	return json.Marshal(out)
}

// SetRawConfig decodes a stored rule_config into r.Config. On failure Config
// is left nil and the error is available from ConfigErr.
func (r *Rule) SetRawConfig(raw []byte) {
	r.Config, r.configErr = DecodeConfig(raw)
	r.rawConfig = nil
	if r.configErr != nil && json.Valid(raw) {
		r.rawConfig = append(json.RawMessage(nil), raw...)
	}
}

// RawConfig returns the rule_config document: the encoded Config, or the
// stored JSON when it could not be decoded.
func (r *Rule) RawConfig() ([]byte, error) {
	if r.Config != nil {
		return EncodeConfig(r.Config)
	}
	if len(r.rawConfig) > 0 {
		return append([]byte(nil), r.rawConfig...), nil
	}
	return nil, fmt.Errorf("%w: rule_config is required", ErrMalformedRule)
}

// ConfigErr reports why the stored rule_config could not be decoded.
func (r *Rule) ConfigErr() error {
	return r.configErr
}

// Validate checks the rule as a whole: metadata and configuration.
func (r *Rule) Validate() error {
	if r.Number <= 0 {
		return fmt.Errorf("%w: rule_number must be positive", ErrMalformedRule)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrMalformedRule)
	}
	if strings.TrimSpace(r.MessageTemplate) == "" {
		return fmt.Errorf("%w: message_template is required", ErrMalformedRule)
	}
	return r.checkEvaluable()
}

// checkEvaluable is the subset of Validate the evaluator relies on.
func (r *Rule) checkEvaluable() error {
	if !r.Severity.Valid() {
		return fmt.Errorf("%w: invalid severity %q", ErrMalformedRule, r.Severity)
	}
	if r.Config == nil {
		if r.configErr != nil {
			return r.configErr
		}
		return fmt.Errorf("%w: rule_config is required", ErrMalformedRule)
	}
	return r.Config.Validate()
}
