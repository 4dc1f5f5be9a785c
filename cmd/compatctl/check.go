package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pcbuild-backend/internal/compat"
)

// errBlocked is returned by check when the publish policy rejects the build.
var errBlocked = errors.New("build is not publishable")

type checkOptions struct {
	rulesFile     string
	selectionFile string
	output        string
	policy        string
	watch         bool
}

func checkCmd(g *globalOptions) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate a selection file against a rule file",
		Long: `Evaluate a selection (category -> part with specifications) against a
rule file and print the issues found. Exits with status 2 when the
publish policy rejects the build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.output); err != nil {
				return err
			}
			logger := g.logger()
			defer logger.Sync()

			if opts.watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return watchCheck(ctx, cmd.OutOrStdout(), opts, logger)
			}

			publishable, err := runCheck(cmd.OutOrStdout(), opts, logger)
			if err != nil {
				return err
			}
			if !publishable {
				return errBlocked
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.rulesFile, "rules", "r", "", "Rule file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.selectionFile, "selection", "s", "", "Selection file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", formatTable, "Output format (table, json, yaml)")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "Publish policy expression (default \""+compat.DefaultPublishPolicy+"\")")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run the check whenever either file changes")
	_ = cmd.MarkFlagRequired("rules")
	_ = cmd.MarkFlagRequired("selection")

	return cmd
}

// runCheck evaluates once and writes the report to w.
func runCheck(w io.Writer, opts checkOptions, logger *zap.Logger) (bool, error) {
	policy, err := compat.NewPublishPolicy(opts.policy)
	if err != nil {
		return false, err
	}
	rules, err := readRuleFile(opts.rulesFile)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(opts.selectionFile)
	if err != nil {
		return false, fmt.Errorf("read selection: %w", err)
	}
	sel, err := compat.ParseSelection(data)
	if err != nil {
		return false, fmt.Errorf("%s: %w", opts.selectionFile, err)
	}

	issues, err := compat.NewEvaluator(logger).Evaluate(sel, rules)
	if err != nil {
		return false, err
	}
	publishable, err := policy.Allows(issues)
	if err != nil {
		return false, err
	}

	errs, warns := compat.CountBySeverity(issues)
	rep := newReport(issues, errs, warns, publishable)
	if err := writeReport(w, opts.output, rep); err != nil {
		return false, err
	}
	return publishable, nil
}

const watchDebounce = 100 * time.Millisecond

// watchCheck runs the check, then again after every change to the rule or
// selection file, until ctx is done. Parent directories are watched so
// editors that replace files on save are followed.
func watchCheck(ctx context.Context, w io.Writer, opts checkOptions, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range []string{opts.rulesFile, opts.selectionFile} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	rerun := func() {
		if _, err := runCheck(w, opts, logger); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
	rerun()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("File changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			rerun()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}
