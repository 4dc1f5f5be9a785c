package metadata

import (
	"sync"

	"pcbuild-backend/internal/compat"
)

// Registry caches the compatibility rule set. Readers get snapshots; a Load
// swaps the whole set, so an evaluation never sees a half-updated list.
type Registry struct {
	mu     sync.RWMutex
	rules  []*compat.Rule
	byID   map[string]*compat.Rule
	active []*compat.Rule
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*compat.Rule)}
}

// GetRule returns the rule with the given id, or nil.
func (r *Registry) GetRule(id string) *compat.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// AllRules returns every cached rule ordered by rule number.
func (r *Registry) AllRules() []*compat.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*compat.Rule(nil), r.rules...)
}

// ActiveRules returns the rules that take part in evaluation.
func (r *Registry) ActiveRules() []*compat.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Load replaces all rules in the registry.
// Called during startup and after admin mutations.
func (r *Registry) Load(rules []*compat.Rule) {
	byID := make(map[string]*compat.Rule, len(rules))
	var active []*compat.Rule
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		if rule.ID != "" {
			byID[rule.ID] = rule
		}
		if rule.Active {
			active = append(active, rule)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append([]*compat.Rule(nil), rules...)
	r.byID = byID
	r.active = active
}
