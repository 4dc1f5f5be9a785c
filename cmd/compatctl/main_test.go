package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultRules = "../../rules/default.yaml"
	exampleBuild = "../../rules/example-build.yaml"
)

const mismatchedSockets = `
cpu:
  specifications: {socket: AM5, tdp_watts: 120}
motherboard:
  specifications: {socket: LGA1700}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheck_ExampleBuild(t *testing.T) {
	out, err := execute(t, "check", "-r", defaultRules, "-s", exampleBuild)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cooler is rated for 95W, below the 144W suggested for this CPU")
	assert.Contains(t, out, "0 error(s), 1 warning(s), publishable: yes")
}

func TestCheck_BlockedBuild(t *testing.T) {
	sel := writeFile(t, t.TempDir(), "sel.yaml", mismatchedSockets)

	out, err := execute(t, "check", "-r", defaultRules, "-s", sel)
	assert.ErrorIs(t, err, errBlocked)
	assert.Contains(t, out, "CPU socket (AM5) does not match motherboard socket (LGA1700)")
	assert.Contains(t, out, "publishable: no")
}

func TestCheck_StructuredOutput(t *testing.T) {
	sel := writeFile(t, t.TempDir(), "sel.yaml", mismatchedSockets)

	out, err := execute(t, "check", "-r", defaultRules, "-s", sel, "-o", "json")
	assert.ErrorIs(t, err, errBlocked)
	var rep report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, 1, rep.Errors)
	assert.False(t, rep.CanPublish)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, 1, rep.Issues[0].RuleNumber)

	out, err = execute(t, "check", "-r", defaultRules, "-s", exampleBuild, "-o", "yaml")
	require.NoError(t, err)
	rep = report{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, 1, rep.Warnings)
	assert.True(t, rep.CanPublish)
	assert.Equal(t, "warning", rep.Issues[0].Severity)
}

func TestCheck_Policy(t *testing.T) {
	out, err := execute(t, "check", "-r", defaultRules, "-s", exampleBuild, "--policy", "warnings == 0")
	assert.ErrorIs(t, err, errBlocked)
	assert.Contains(t, out, "publishable: no")

	_, err = execute(t, "check", "-r", defaultRules, "-s", exampleBuild, "--policy", "errors +")
	assert.ErrorContains(t, err, "publish policy")
}

func TestCheck_BadInput(t *testing.T) {
	_, err := execute(t, "check", "-r", defaultRules, "-s", exampleBuild, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = execute(t, "check", "-r", defaultRules)
	assert.Error(t, err, "selection is required")

	sel := writeFile(t, t.TempDir(), "sel.yaml", "- cpu\n")
	_, err = execute(t, "check", "-r", defaultRules, "-s", sel)
	assert.ErrorContains(t, err, "invalid selection")
}

func TestRulesValidate(t *testing.T) {
	out, err := execute(t, "rules", "validate", "-r", defaultRules)
	require.NoError(t, err, out)
	assert.Contains(t, out, "10 rules OK")

	bad := writeFile(t, t.TempDir(), "rules.yaml", `
rules:
  - rule_number: 1
    name: Socket
    severity: error
    message_template: "{a} vs {b}"
    rule_config: {type: field_match, part_a: cpu, field_a: socket, part_b: motherboard, field_b: socket}
  - rule_number: 1
    name: Clearance
    severity: error
    message_template: "{a} > {b}"
    rule_config: {type: field_lte, part_a: gpu, field_a: length_mm, part_b: case}
`)
	out, err = execute(t, "rules", "validate", "-r", bad)
	require.Error(t, err)
	assert.Contains(t, out, "rule #2 (Clearance): malformed rule")
	assert.Contains(t, out, "duplicate rule_number 1")
}

func TestRulesList(t *testing.T) {
	out, err := execute(t, "rules", "list", "-r", defaultRules)
	require.NoError(t, err)
	assert.Contains(t, out, "CPU-Motherboard Socket Match")
	assert.Contains(t, out, "array_contains_formatted")

	out, err = execute(t, "rules", "list", "-r", defaultRules, "-o", "json")
	require.NoError(t, err)
	var rules []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	assert.Len(t, rules, 10)

	out, err = execute(t, "rules", "list", "-r", defaultRules, "-o", "yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rules:"), out)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCheck_RerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	rules, err := os.ReadFile(defaultRules)
	require.NoError(t, err)
	example, err := os.ReadFile(exampleBuild)
	require.NoError(t, err)
	opts := checkOptions{
		rulesFile:     writeFile(t, dir, "rules.yaml", string(rules)),
		selectionFile: writeFile(t, dir, "sel.yaml", string(example)),
		output:        formatTable,
	}

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- watchCheck(ctx, &out, opts, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "publishable: yes")
	}, 5*time.Second, 20*time.Millisecond)

	writeFile(t, dir, "sel.yaml", mismatchedSockets)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "CPU socket (AM5) does not match motherboard socket (LGA1700)")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
