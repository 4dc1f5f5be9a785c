package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"pcbuild-backend/internal/compat"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", f)
}

type reportIssue struct {
	RuleNumber int    `json:"rule_number,omitempty" yaml:"rule_number,omitempty"`
	Severity   string `json:"severity" yaml:"severity"`
	Message    string `json:"message" yaml:"message"`
}

type report struct {
	Issues     []reportIssue `json:"issues" yaml:"issues"`
	Errors     int           `json:"errors" yaml:"errors"`
	Warnings   int           `json:"warnings" yaml:"warnings"`
	CanPublish bool          `json:"can_publish" yaml:"can_publish"`
}

func newReport(issues []compat.Issue, errs, warns int, publishable bool) report {
	rep := report{Issues: []reportIssue{}, Errors: errs, Warnings: warns, CanPublish: publishable}
	for _, is := range issues {
		rep.Issues = append(rep.Issues, reportIssue{
			RuleNumber: is.RuleNumber,
			Severity:   string(is.Severity),
			Message:    is.Message,
		})
	}
	return rep
}

func writeReport(w io.Writer, format string, rep report) error {
	switch format {
	case formatJSON:
		return writeJSON(w, rep)
	case formatYAML:
		return writeYAML(w, rep)
	}

	if len(rep.Issues) == 0 {
		fmt.Fprintln(w, "No compatibility issues found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RULE\tSEVERITY\tMESSAGE")
		for _, is := range rep.Issues {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", is.RuleNumber, is.Severity, is.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	verdict := "yes"
	if !rep.CanPublish {
		verdict = "no"
	}
	_, err := fmt.Fprintf(w, "\n%d error(s), %d warning(s), publishable: %s\n", rep.Errors, rep.Warnings, verdict)
	return err
}

func writeRules(w io.Writer, format string, rules []*compat.Rule) error {
	switch format {
	case formatJSON:
		return writeJSON(w, rules)
	case formatYAML:
		// Round-trip through JSON so the rule_config shape is the stored one.
		data, err := json.Marshal(rules)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		return writeYAML(w, map[string]any{"rules": doc})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSEVERITY\tACTIVE\tTYPE\tNAME")
	for _, r := range rules {
		typ := "invalid"
		if r.Config != nil {
			typ = string(r.Config.Type())
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\n", r.Number, r.Severity, r.Active, typ, r.Name)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
