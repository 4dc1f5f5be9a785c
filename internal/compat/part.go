package compat

import (
	"fmt"
	"regexp"
	"strings"
)

// Category slugs known to the part catalog.
const (
	CategoryCPU         = "cpu"
	CategoryGPU         = "gpu"
	CategoryMotherboard = "motherboard"
	CategoryRAM         = "ram"
	CategoryStorage     = "storage"
	CategoryPSU         = "psu"
	CategoryCase        = "case"
	CategoryCooling     = "cooling"
)

// Categories lists every category slug in display order.
var Categories = []string{
	CategoryCPU, CategoryGPU, CategoryMotherboard, CategoryRAM,
	CategoryStorage, CategoryPSU, CategoryCase, CategoryCooling,
}

// Part is a catalog component. Specifications values are string, float64,
// bool or []string; their schema depends on the category.
type Part struct {
	ID             string         `json:"id,omitempty"`
	Category       string         `json:"category,omitempty"`
	CategoryID     string         `json:"category_id,omitempty"`
	Brand          string         `json:"brand,omitempty"`
	Model          string         `json:"model,omitempty"`
	Name           string         `json:"name,omitempty"`
	Price          float64        `json:"price,omitempty"`
	Specifications map[string]any `json:"specifications"`
}

// Spec returns the named specification value. A nil value counts as absent.
func (p *Part) Spec(field string) (any, bool) {
	if p == nil || p.Specifications == nil {
		return nil, false
	}
	v, ok := p.Specifications[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Selection maps a category slug to the part chosen for it.
// A nil entry means "not chosen yet".
type Selection map[string]*Part

// Present returns the selection without nil entries and validates its shape.
func (s Selection) Present() (Selection, error) {
	out := make(Selection, len(s))
	for slug, p := range s {
		if slug == "" {
			return nil, fmt.Errorf("%w: empty category key", ErrInvalidSelection)
		}
		if p == nil {
			continue
		}
		if p.Category != "" && p.Category != slug {
			return nil, fmt.Errorf("%w: part %q is a %s, selected as %s",
				ErrInvalidSelection, p.ID, p.Category, slug)
		}
		out[slug] = p
	}
	return out, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify derives a category slug from its display name: lowercased, with
// whitespace runs replaced by a single hyphen.
func Slugify(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
