package compat

import "strings"

func (c FieldMatch) check(sel Selection) (violation, bool) {
	va, okA := lookup(sel, c.A)
	vb, okB := lookup(sel, c.B)
	if !okA || !okB || va == nil || vb == nil {
		return violation{}, false
	}
	if valuesEqual(va, vb) {
		return violation{}, false
	}
	return violation{a: formatValue(va), b: formatValue(vb)}, true
}

func (c FieldLTE) check(sel Selection) (violation, bool) {
	va, okA := lookup(sel, c.A)
	vb, okB := lookup(sel, c.B)
	if !okA || !okB {
		return violation{}, false
	}
	na, ok := toFloat64(va)
	if !ok {
		return violation{}, false
	}
	nb, ok := toFloat64(vb)
	if !ok {
		return violation{}, false
	}
	if na <= nb {
		return violation{}, false
	}
	return violation{a: formatNumber(na), b: formatNumber(nb)}, true
}

func (c ArrayContains) check(sel Selection) (violation, bool) {
	return checkMembership(sel, c.Value, c.Array, formatValue)
}

func (c ArrayContainsFormatted) check(sel Selection) (violation, bool) {
	return checkMembership(sel, c.Value, c.Array, func(v any) string {
		return formatWith(c.Format, v)
	})
}

// checkMembership is shared by both array rules. A missing array field is
// the empty set, so the rule fires as long as the scalar side is present.
func checkMembership(sel Selection, value, array FieldRef, render func(any) string) (violation, bool) {
	v, okV := lookup(sel, value)
	list, okL := lookup(sel, array)
	if !okV || !okL || v == nil || isList(v) {
		return violation{}, false
	}
	needle := render(v)
	set := toStringSlice(list)
	if contains(set, needle) {
		return violation{}, false
	}
	return violation{a: needle, b: strings.Join(set, ", ")}, true
}

func (c SumGTE) check(sel Selection) (violation, bool) {
	tv, ok := lookup(sel, c.Target)
	if !ok {
		return violation{}, false
	}
	target, ok := toFloat64(tv)
	if !ok {
		return violation{}, false
	}

	var sum float64
	for _, ref := range c.Sum {
		v, ok := lookup(sel, ref)
		if !ok {
			return violation{}, false
		}
		n, ok := toFloat64(v)
		if !ok {
			return violation{}, false
		}
		sum += n
	}

	m := c.Multiplier
	if m <= 0 {
		m = 1
	}
	target *= m
	if sum >= target {
		return violation{}, false
	}
	return violation{a: formatNumber(sum), b: formatNumber(target)}, true
}

func (c PairMismatch) check(sel Selection) (violation, bool) {
	va, okA := lookup(sel, c.A)
	vb, okB := lookup(sel, c.B)
	if !okA || !okB || va == nil || vb == nil {
		return violation{}, false
	}
	for _, p := range c.Pairs {
		if valuesEqual(va, p.A) && valuesEqual(vb, p.B) {
			return violation{a: formatValue(va), b: formatValue(vb), template: p.Msg}, true
		}
	}
	return violation{}, false
}
