package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFieldsCoverEveryCategory(t *testing.T) {
	for _, c := range Categories {
		assert.NotEmpty(t, CategoryFields[c], c)
	}
	assert.True(t, HasField(CategoryCase, "supported_motherboards"))
	assert.False(t, HasField(CategoryCase, "socket"))
}

func TestNormalizeSpecifications(t *testing.T) {
	got, err := NormalizeSpecifications(CategoryCase, map[string]any{
		"form_factor":            "ATX",
		"supported_motherboards": "ATX, mATX, ITX",
		"max_gpu_length_mm":      "360",
		"radiator_support":       []any{"240mm", "360mm"},
		"included_fans":          nil,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"form_factor":            "ATX",
		"supported_motherboards": []string{"ATX", "mATX", "ITX"},
		"max_gpu_length_mm":      360.0,
		"radiator_support":       []string{"240mm", "360mm"},
		"included_fans":          nil,
	}, got)
}

func TestNormalizeSpecifications_Errors(t *testing.T) {
	_, err := NormalizeSpecifications("fan", map[string]any{})
	assert.ErrorContains(t, err, "unknown category")

	_, err = NormalizeSpecifications(CategoryCPU, map[string]any{
		"socket":              7,
		"tdp_watts":           "lots",
		"integrated_graphics": "yes",
		"colour":              "red",
	})
	require.Error(t, err)
	for _, msg := range []string{
		"socket must be text",
		"tdp_watts must be a number",
		"integrated_graphics must be a boolean",
		"unknown field colour",
	} {
		assert.ErrorContains(t, err, msg)
	}

	_, err = NormalizeSpecifications(CategoryMotherboard, map[string]any{"form_factor": "E-ATX"})
	assert.ErrorContains(t, err, "form_factor must be one of ATX, mATX, ITX")
}
