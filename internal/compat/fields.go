package compat

import (
	"fmt"
	"sort"
	"strings"
)

// FieldKind is the value kind of a specification field.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "boolean"
	KindList   FieldKind = "list"
)

// FieldSpec describes one specification field of a category.
type FieldSpec struct {
	Key     string    `json:"key"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
}

// CategoryFields is the specification schema of every category.
var CategoryFields = map[string][]FieldSpec{
	CategoryCPU: {
		{Key: "socket", Kind: KindText},
		{Key: "cores", Kind: KindNumber},
		{Key: "threads", Kind: KindNumber},
		{Key: "base_clock_ghz", Kind: KindNumber},
		{Key: "boost_clock_ghz", Kind: KindNumber},
		{Key: "tdp_watts", Kind: KindNumber},
		{Key: "integrated_graphics", Kind: KindBool},
	},
	CategoryGPU: {
		{Key: "interface", Kind: KindText},
		{Key: "vram_gb", Kind: KindNumber},
		{Key: "vram_type", Kind: KindText},
		{Key: "length_mm", Kind: KindNumber},
		{Key: "tdp_watts", Kind: KindNumber},
		{Key: "recommended_psu_watts", Kind: KindNumber},
		{Key: "slots_occupied", Kind: KindNumber},
	},
	CategoryMotherboard: {
		{Key: "socket", Kind: KindText},
		{Key: "form_factor", Kind: KindText, Options: []string{"ATX", "mATX", "ITX"}},
		{Key: "chipset", Kind: KindText},
		{Key: "ram_type", Kind: KindText, Options: []string{"DDR4", "DDR5"}},
		{Key: "ram_slots", Kind: KindNumber},
		{Key: "max_ram_gb", Kind: KindNumber},
		{Key: "m2_slots", Kind: KindNumber},
		{Key: "pcie_x16_slots", Kind: KindNumber},
	},
	CategoryRAM: {
		{Key: "type", Kind: KindText, Options: []string{"DDR4", "DDR5"}},
		{Key: "speed_mhz", Kind: KindNumber},
		{Key: "capacity_gb", Kind: KindNumber},
		{Key: "modules", Kind: KindNumber},
		{Key: "total_capacity_gb", Kind: KindNumber},
		{Key: "cas_latency", Kind: KindNumber},
	},
	CategoryStorage: {
		{Key: "type", Kind: KindText, Options: []string{"NVMe", "SATA"}},
		{Key: "interface", Kind: KindText, Options: []string{"M.2", `2.5"`}},
		{Key: "capacity_gb", Kind: KindNumber},
		{Key: "read_speed_mbps", Kind: KindNumber},
		{Key: "write_speed_mbps", Kind: KindNumber},
		{Key: "form_factor", Kind: KindText},
	},
	CategoryPSU: {
		{Key: "wattage", Kind: KindNumber},
		{Key: "efficiency_rating", Kind: KindText},
		{Key: "modular", Kind: KindText, Options: []string{"Full", "Semi", "None"}},
		{Key: "form_factor", Kind: KindText, Options: []string{"ATX", "SFX"}},
	},
	CategoryCase: {
		{Key: "form_factor", Kind: KindText, Options: []string{"ATX", "mATX", "ITX"}},
		{Key: "supported_motherboards", Kind: KindList},
		{Key: "max_gpu_length_mm", Kind: KindNumber},
		{Key: "max_cooler_height_mm", Kind: KindNumber},
		{Key: "max_psu_length_mm", Kind: KindNumber},
		{Key: "drive_bays_3_5", Kind: KindNumber},
		{Key: "drive_bays_2_5", Kind: KindNumber},
		{Key: "included_fans", Kind: KindNumber},
		{Key: "radiator_support", Kind: KindList},
	},
	CategoryCooling: {
		{Key: "type", Kind: KindText, Options: []string{"Air", "AIO"}},
		{Key: "socket_compatibility", Kind: KindList},
		{Key: "radiator_size_mm", Kind: KindNumber},
		{Key: "height_mm", Kind: KindNumber},
		{Key: "fan_count", Kind: KindNumber},
		{Key: "tdp_rating_watts", Kind: KindNumber},
	},
}

// HasField reports whether category declares field.
func HasField(category, field string) bool {
	for _, f := range CategoryFields[category] {
		if f.Key == field {
			return true
		}
	}
	return false
}

// NormalizeSpecifications checks specs against the category schema and
// returns a copy with values coerced to their declared kind: numeric strings
// become numbers, comma-separated strings become lists. Nulls are kept.
func NormalizeSpecifications(category string, specs map[string]any) (map[string]any, error) {
	fields, ok := CategoryFields[category]
	if !ok {
		return nil, fmt.Errorf("unknown category: %s", category)
	}
	byKey := make(map[string]FieldSpec, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	out := make(map[string]any, len(specs))
	var problems []string
	for key, v := range specs {
		f, ok := byKey[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown field %s", key))
			continue
		}
		if v == nil {
			out[key] = nil
			continue
		}
		nv, err := coerceField(f, v)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		out[key] = nv
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("invalid specifications for %s: %s", category, strings.Join(problems, "; "))
	}
	return out, nil
}

func coerceField(f FieldSpec, v any) (any, error) {
	switch f.Kind {
	case KindNumber:
		n, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("%s must be a number", f.Key)
		}
		return n, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%s must be a boolean", f.Key)
		}
		return b, nil
	case KindList:
		if _, isMap := v.(map[string]any); isMap {
			return nil, fmt.Errorf("%s must be a list", f.Key)
		}
		list := toStringSlice(v)
		if list == nil {
			list = []string{}
		}
		return list, nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be text", f.Key)
		}
		if len(f.Options) > 0 && s != "" && !contains(f.Options, s) {
			return nil, fmt.Errorf("%s must be one of %s", f.Key, strings.Join(f.Options, ", "))
		}
		return s, nil
	}
}
