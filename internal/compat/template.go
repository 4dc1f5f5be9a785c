package compat

import "strings"

// Render substitutes the {a} and {b} placeholders in a message template.
// Substitution is a single pass, so a value containing "{b}" is not
// expanded again.
func Render(template, a, b string) string {
	return strings.NewReplacer("{a}", a, "{b}", b).Replace(template)
}

// formatWith renders a value through an array_contains_formatted format.
func formatWith(format string, value any) string {
	return strings.ReplaceAll(format, "{value}", formatValue(value))
}
