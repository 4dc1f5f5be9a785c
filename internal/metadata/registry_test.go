package metadata

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pcbuild-backend/internal/compat"
)

type fakeSource struct {
	rules []*compat.Rule
	err   error
}

func (f *fakeSource) ListRules(context.Context) ([]*compat.Rule, error) {
	return f.rules, f.err
}

func testRules(t *testing.T) []*compat.Rule {
	t.Helper()
	rules, err := compat.ParseRuleSet([]byte(`
- id: r1
  rule_number: 1
  name: CPU socket
  severity: error
  message_template: "{a} vs {b}"
  rule_config: {type: field_match, part_a: cpu, field_a: socket, part_b: motherboard, field_b: socket}
- id: r2
  rule_number: 2
  name: Disabled
  severity: warning
  is_active: false
  message_template: "{a} vs {b}"
  rule_config: {type: field_match, part_a: ram, field_a: type, part_b: motherboard, field_b: ram_type}
- id: r3
  rule_number: 3
  name: Legacy
  severity: error
  message_template: x
  rule_config: {type: voltage_match}
`))
	require.NoError(t, err)
	return rules
}

func TestRegistry_Load(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.ActiveRules())
	assert.Nil(t, reg.GetRule("r1"))

	reg.Load(testRules(t))

	assert.Len(t, reg.AllRules(), 3)
	active := reg.ActiveRules()
	require.Len(t, active, 2)
	assert.Equal(t, "r1", active[0].ID)
	assert.Equal(t, "r3", active[1].ID)
	assert.Equal(t, "Disabled", reg.GetRule("r2").Name)

	reg.Load(nil)
	assert.Empty(t, reg.AllRules())
	assert.Nil(t, reg.GetRule("r1"))
}

func TestRegistry_AllRulesIsACopy(t *testing.T) {
	reg := NewRegistry()
	reg.Load(testRules(t))

	all := reg.AllRules()
	all[0] = nil
	assert.NotNil(t, reg.AllRules()[0])
}

func TestRegistry_ConcurrentReadsDuringLoad(t *testing.T) {
	reg := NewRegistry()
	rules := testRules(t)
	sel := compat.Selection{
		"cpu":         {Specifications: map[string]any{"socket": "AM5"}},
		"motherboard": {Specifications: map[string]any{"socket": "LGA1700"}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Load(rules)
		}()
		go func() {
			defer wg.Done()
			_, err := compat.Evaluate(sel, reg.ActiveRules())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestLoadAll(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reg := NewRegistry()

	require.NoError(t, LoadAll(context.Background(), &fakeSource{rules: testRules(t)}, reg, zap.New(core)))
	assert.Len(t, reg.AllRules(), 3)

	warn := logs.FilterMessage("Rule has an invalid rule_config").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "r3", warn[0].ContextMap()["rule_id"])

	info := logs.FilterMessage("Loaded compatibility rules into registry").All()
	require.Len(t, info, 1)
	assert.EqualValues(t, 2, info[0].ContextMap()["active"])
}

func TestLoadAll_SourceError(t *testing.T) {
	reg := NewRegistry()
	reg.Load(testRules(t))

	err := Reload(context.Background(), &fakeSource{err: errors.New("db down")}, reg, zap.NewNop())
	assert.ErrorContains(t, err, "db down")
	assert.Len(t, reg.AllRules(), 3, "a failed reload keeps the previous rule set")
}
