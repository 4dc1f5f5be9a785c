package compat

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlToJSON converts a YAML (or JSON) document into JSON so the JSON field
// tags stay the single source of truth for file formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return json.Marshal(doc)
}

// ParseRuleSet reads a rule file. The document is either a list of rules or
// a mapping with a "rules" list. Rules with a bad rule_config are returned
// too; see Rule.ConfigErr.
func ParseRuleSet(data []byte) ([]*Rule, error) {
	js, err := yamlToJSON(data)
	if err != nil {
		return nil, err
	}

	if len(js) > 0 && js[0] == '[' {
		var rules []*Rule
		if err := json.Unmarshal(js, &rules); err != nil {
			return nil, fmt.Errorf("decode rules: %w", err)
		}
		return rules, nil
	}
	var wrapped struct {
		Rules []*Rule `json:"rules"`
	}
	if err := json.Unmarshal(js, &wrapped); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return wrapped.Rules, nil
}

// ParseSelection reads a selection file: a mapping from category slug to a
// part object (or null when nothing is chosen for the slot).
func ParseSelection(data []byte) (Selection, error) {
	js, err := yamlToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	var sel Selection
	if err := json.Unmarshal(js, &sel); err != nil {
		return nil, fmt.Errorf("%w: selection must be a mapping of category to part: %v", ErrInvalidSelection, err)
	}
	for slug, p := range sel {
		if p != nil && p.Category == "" {
			p.Category = slug
		}
	}
	return sel, nil
}
