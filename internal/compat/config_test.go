package compat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want RuleConfig
	}{
		{
			name: "field_match",
			raw:  `{"type":"field_match","part_a":"cpu","field_a":"socket","part_b":"motherboard","field_b":"socket"}`,
			want: FieldMatch{A: ref("cpu", "socket"), B: ref("motherboard", "socket")},
		},
		{
			name: "array_contains_formatted",
			raw:  `{"type":"array_contains_formatted","part_a":"cooling","field_a":"radiator_size_mm","part_b":"case","field_b":"radiator_support","format":"{value}mm"}`,
			want: ArrayContainsFormatted{Value: ref("cooling", "radiator_size_mm"), Array: ref("case", "radiator_support"), Format: "{value}mm"},
		},
		{
			name: "sum_gte without multiplier",
			raw:  `{"type":"sum_gte","target_part":"psu","target_field":"wattage","sum_fields":[{"part":"cpu","field":"tdp_watts"}]}`,
			want: SumGTE{Target: ref("psu", "wattage"), Multiplier: 1, Sum: []FieldRef{ref("cpu", "tdp_watts")}},
		},
		{
			name: "sum_gte non-positive multiplier",
			raw:  `{"type":"sum_gte","target_part":"psu","target_field":"wattage","multiplier":0,"sum_fields":[{"part":"cpu","field":"tdp_watts"}]}`,
			want: SumGTE{Target: ref("psu", "wattage"), Multiplier: 1, Sum: []FieldRef{ref("cpu", "tdp_watts")}},
		},
		{
			name: "pair_mismatch",
			raw:  `{"type":"pair_mismatch","part_a":"psu","field_a":"form_factor","part_b":"case","field_b":"form_factor","pairs":[{"a":"ATX","b":"ITX","msg":"ATX PSU may not fit"}]}`,
			want: PairMismatch{A: ref("psu", "form_factor"), B: ref("case", "form_factor"), Pairs: []Pair{{A: "ATX", B: "ITX", Msg: "ATX PSU may not fit"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConfig([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeConfig_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		unknown bool
		msg     string
	}{
		{name: "empty", raw: ``, msg: "rule_config is required"},
		{name: "null", raw: `null`, msg: "rule_config is required"},
		{name: "not an object", raw: `[1,2]`},
		{name: "no type", raw: `{"part_a":"cpu"}`, msg: "type is required"},
		{name: "unknown type", raw: `{"type":"voltage_match"}`, unknown: true, msg: `"voltage_match"`},
		{name: "field_lte without field_b", raw: `{"type":"field_lte","part_a":"gpu","field_a":"length_mm","part_b":"case"}`, msg: "field_lte requires field_b"},
		{name: "field_match without parts", raw: `{"type":"field_match","field_a":"socket","field_b":"socket"}`, msg: "part_a, part_b"},
		{name: "formatted without format", raw: `{"type":"array_contains_formatted","part_a":"a","field_a":"b","part_b":"c","field_b":"d"}`, msg: "requires format"},
		{name: "sum_gte without sum_fields", raw: `{"type":"sum_gte","target_part":"psu","target_field":"wattage"}`, msg: "requires sum_fields"},
		{name: "sum_gte incomplete ref", raw: `{"type":"sum_gte","target_part":"psu","target_field":"wattage","sum_fields":[{"part":"cpu"}]}`, msg: "sum_fields[0]"},
		{name: "pair_mismatch without pairs", raw: `{"type":"pair_mismatch","part_a":"a","field_a":"b","part_b":"c","field_b":"d"}`, msg: "requires pairs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig([]byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRule)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownRuleType)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestEncodeConfig_RoundTripsEveryType(t *testing.T) {
	configs := []RuleConfig{
		FieldMatch{A: ref("cpu", "socket"), B: ref("motherboard", "socket")},
		FieldLTE{A: ref("gpu", "length_mm"), B: ref("case", "max_gpu_length_mm")},
		ArrayContains{Value: ref("motherboard", "form_factor"), Array: ref("case", "supported_motherboards")},
		ArrayContainsFormatted{Value: ref("cooling", "radiator_size_mm"), Array: ref("case", "radiator_support"), Format: "{value}mm"},
		SumGTE{Target: ref("psu", "wattage"), Multiplier: 1.2, Sum: []FieldRef{ref("cpu", "tdp_watts"), ref("gpu", "tdp_watts")}},
		PairMismatch{A: ref("psu", "form_factor"), B: ref("case", "form_factor"), Pairs: []Pair{{A: "SFX", B: "ATX"}}},
	}
	require.Len(t, configs, len(RuleTypes))

	for i, cfg := range configs {
		assert.Equal(t, RuleTypes[i], cfg.Type())
		raw, err := EncodeConfig(cfg)
		require.NoError(t, err)
		got, err := DecodeConfig(raw)
		require.NoError(t, err, string(raw))
		assert.Equal(t, cfg, got)
	}

	_, err := EncodeConfig(nil)
	assert.ErrorIs(t, err, ErrMalformedRule)
}

func TestRule_UnmarshalJSON(t *testing.T) {
	var r Rule
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "r1", "rule_number": 4, "name": "RAM type", "severity": "error",
		"message_template": "RAM {a} is not supported by a {b} board",
		"rule_config": {"type":"field_match","part_a":"ram","field_a":"type","part_b":"motherboard","field_b":"ram_type"}
	}`), &r))

	assert.True(t, r.Active, "omitted is_active means active")
	assert.NoError(t, r.ConfigErr())
	assert.NoError(t, r.Validate())
	assert.Equal(t, FieldMatch{A: ref("ram", "type"), B: ref("motherboard", "ram_type")}, r.Config)

	require.NoError(t, json.Unmarshal([]byte(`{"rule_number":1,"is_active":false,"rule_config":{"type":"nope"}}`), &r))
	assert.False(t, r.Active)
	assert.Nil(t, r.Config)
	assert.ErrorIs(t, r.ConfigErr(), ErrUnknownRuleType)
	assert.Empty(t, r.Name, "decode resets previous fields")
}

func TestRule_MarshalKeepsUndecodableConfig(t *testing.T) {
	var r Rule
	require.NoError(t, json.Unmarshal([]byte(`{"rule_number":9,"name":"legacy","severity":"warning","message_template":"x","rule_config":{"type":"legacy_check","limit":3}}`), &r))

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, map[string]any{"type": "legacy_check", "limit": 3.0}, back["rule_config"])
	assert.Equal(t, true, back["is_active"])
}

func TestRule_Validate(t *testing.T) {
	valid := func() *Rule { return socketRule() }

	tests := []struct {
		name   string
		mutate func(r *Rule)
		msg    string
	}{
		{"ok", func(r *Rule) {}, ""},
		{"zero number", func(r *Rule) { r.Number = 0 }, "rule_number"},
		{"blank name", func(r *Rule) { r.Name = "  " }, "name"},
		{"no template", func(r *Rule) { r.MessageTemplate = "" }, "message_template"},
		{"bad severity", func(r *Rule) { r.Severity = "info" }, "severity"},
		{"no config", func(r *Rule) { r.Config = nil }, "rule_config"},
		{"incomplete config", func(r *Rule) { r.Config = FieldMatch{A: ref("cpu", "socket")} }, "part_b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrMalformedRule)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestIssue_MarshalsSeverityAndMessageOnly(t *testing.T) {
	raw, err := json.Marshal(Issue{Severity: SeverityWarning, Message: "PSU is tight", RuleNumber: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"severity":"warning","message":"PSU is tight"}`, string(raw))
}
