package compat

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// lookup returns the value of ref in sel. partOK is false when the part
// itself is not selected; a present part with a missing field yields
// (nil, true).
func lookup(sel Selection, ref FieldRef) (v any, partOK bool) {
	p, ok := sel[ref.Part]
	if !ok || p == nil {
		return nil, false
	}
	v, _ = p.Spec(ref.Field)
	return v, true
}

// toFloat64 coerces numeric values, including numeric strings.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// isNumber reports whether v is a numeric type. Numeric strings are not.
func isNumber(v any) bool {
	if _, ok := v.(string); ok {
		return false
	}
	_, ok := toFloat64(v)
	return ok
}

func isList(v any) bool {
	switch v.(type) {
	case []string, []any:
		return true
	}
	return false
}

// formatNumber prints integers without a fraction and trims float noise
// beyond six decimals.
func formatNumber(f float64) string {
	if math.Abs(f) < 1e15 {
		f = math.Round(f*1e6) / 1e6
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatValue renders a specification value for messages and membership tests.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []string, []any:
		return strings.Join(toStringSlice(val), ", ")
	}
	if f, ok := toFloat64(v); ok {
		return formatNumber(f)
	}
	return fmt.Sprint(v)
}

// toStringSlice reads a list field. A comma-separated string is split the
// way list fields are entered; nil is the empty list.
func toStringSlice(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, formatValue(item))
		}
		return out
	case string:
		return splitList(val)
	default:
		return []string{formatValue(val)}
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// valuesEqual compares two specification values. Numbers compare
// numerically, lists element-wise; values of different kinds never match.
func valuesEqual(a, b any) bool {
	switch {
	case isNumber(a) && isNumber(b):
		fa, _ := toFloat64(a)
		fb, _ := toFloat64(b)
		return fa == fb
	case isList(a) && isList(b):
		la, lb := toStringSlice(a), toStringSlice(b)
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if la[i] != lb[i] {
				return false
			}
		}
		return true
	}
	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	}
	return false
}

func contains(set []string, s string) bool {
	for _, item := range set {
		if item == s {
			return true
		}
	}
	return false
}
