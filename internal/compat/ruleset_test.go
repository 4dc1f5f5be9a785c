package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ruleSetYAML = `
rules:
  - rule_number: 1
    name: CPU socket
    severity: error
    message_template: "CPU socket {a} does not match motherboard socket {b}"
    rule_config:
      type: field_match
      part_a: cpu
      field_a: socket
      part_b: motherboard
      field_b: socket
  - rule_number: 2
    name: PSU headroom
    severity: warning
    is_active: false
    message_template: "{a}W < {b}W"
    rule_config:
      type: sum_gte
      target_part: psu
      target_field: wattage
      multiplier: 1.2
      sum_fields:
        - {part: cpu, field: tdp_watts}
        - {part: gpu, field: tdp_watts}
  - rule_number: 3
    name: Broken
    severity: error
    message_template: x
    rule_config:
      type: field_lte
      part_a: gpu
`

func TestParseRuleSet(t *testing.T) {
	rules, err := ParseRuleSet([]byte(ruleSetYAML))
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.True(t, rules[0].Active)
	assert.Equal(t, FieldMatch{A: ref("cpu", "socket"), B: ref("motherboard", "socket")}, rules[0].Config)

	assert.False(t, rules[1].Active)
	assert.Equal(t, SumGTE{
		Target:     ref("psu", "wattage"),
		Multiplier: 1.2,
		Sum:        []FieldRef{ref("cpu", "tdp_watts"), ref("gpu", "tdp_watts")},
	}, rules[1].Config)

	assert.Nil(t, rules[2].Config)
	assert.ErrorIs(t, rules[2].ConfigErr(), ErrMalformedRule)
}

func TestParseRuleSet_BareListAndJSON(t *testing.T) {
	rules, err := ParseRuleSet([]byte(`[{"rule_number": 1, "name": "a", "severity": "error", "message_template": "x",
		"rule_config": {"type": "field_match", "part_a": "cpu", "field_a": "socket", "part_b": "motherboard", "field_b": "socket"}}]`))
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.NoError(t, rules[0].Validate())

	_, err = ParseRuleSet([]byte("rules: [unterminated"))
	assert.Error(t, err)

	_, err = ParseRuleSet([]byte("- rule_number: one"))
	assert.Error(t, err)
}

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection([]byte(`
cpu:
  name: Ryzen 7 7800X3D
  specifications:
    socket: AM5
    tdp_watts: 120
motherboard:
  specifications:
    socket: LGA1700
gpu: null
`))
	require.NoError(t, err)
	assert.Equal(t, "cpu", sel["cpu"].Category)
	assert.Equal(t, 120.0, sel["cpu"].Specifications["tdp_watts"])
	assert.Nil(t, sel["gpu"])

	issues, err := Evaluate(sel, []*Rule{socketRule()})
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestParseSelection_Invalid(t *testing.T) {
	_, err := ParseSelection([]byte("- cpu\n- gpu\n"))
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = ParseSelection([]byte("cpu: [\n"))
	assert.ErrorIs(t, err, ErrInvalidSelection)
}
