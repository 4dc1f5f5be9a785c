package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pcbuild-backend/internal/compat"
)

func rulesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect rule files",
	}

	var file string
	cmd.PersistentFlags().StringVarP(&file, "rules", "r", "", "Rule file (YAML or JSON)")
	_ = cmd.MarkPersistentFlagRequired("rules")

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Report rules that cannot be evaluated",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := readRuleFile(file)
			if err != nil {
				return err
			}
			problems := validateRules(rules)
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%s: %d problem(s) in %d rules", file, len(problems), len(rules))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rules OK\n", len(rules))
			return nil
		},
	})

	var output string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the rules in a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			rules, err := readRuleFile(file)
			if err != nil {
				return err
			}
			return writeRules(cmd.OutOrStdout(), output, rules)
		},
	}
	list.Flags().StringVarP(&output, "output", "o", formatTable, "Output format (table, json, yaml)")
	cmd.AddCommand(list)

	return cmd
}

func readRuleFile(path string) ([]*compat.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	rules, err := compat.ParseRuleSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// validateRules returns one line per invalid rule or reused rule number.
func validateRules(rules []*compat.Rule) []string {
	var problems []string
	seen := map[int]bool{}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("rule #%d (%s): %v", i+1, ruleLabel(r), err))
		}
		if r.Number > 0 {
			if seen[r.Number] {
				problems = append(problems, fmt.Sprintf("rule #%d (%s): duplicate rule_number %d", i+1, ruleLabel(r), r.Number))
			}
			seen[r.Number] = true
		}
	}
	return problems
}

func ruleLabel(r *compat.Rule) string {
	if r.Name != "" {
		return r.Name
	}
	return "unnamed"
}
