package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPolicy_Default(t *testing.T) {
	p, err := NewPublishPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPublishPolicy, p.String())

	ok, err := p.Allows(nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Allows([]Issue{{Severity: SeverityWarning, Message: "advisory"}})
	require.NoError(t, err)
	assert.True(t, ok, "warnings do not block")

	ok, err = p.Allows([]Issue{{Severity: SeverityError, Message: "blocked"}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublishPolicy_Custom(t *testing.T) {
	p, err := NewPublishPolicy("errors == 0 && warnings < 2")
	require.NoError(t, err)

	ok, err := p.Allows([]Issue{{Severity: SeverityWarning}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Allows([]Issue{{Severity: SeverityWarning}, {Severity: SeverityWarning}})
	require.NoError(t, err)
	assert.False(t, ok)

	p, err = NewPublishPolicy("len(issues) == 0")
	require.NoError(t, err)
	ok, err = p.Allows([]Issue{{Severity: SeverityWarning}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublishPolicy_CompileErrors(t *testing.T) {
	_, err := NewPublishPolicy("errors +")
	assert.Error(t, err)

	_, err = NewPublishPolicy("errors + warnings")
	assert.Error(t, err, "non-boolean policies are rejected")

	_, err = NewPublishPolicy("blockers == 0")
	assert.Error(t, err, "unknown variables are rejected")
}
