// Command compatctl evaluates PC build selections against compatibility
// rule files without a running server.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pcbuild-backend/internal/config"
	"pcbuild-backend/internal/logging"
)

const (
	exitError   = 1
	exitBlocked = 2
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		if errors.Is(err, errBlocked) {
			os.Exit(exitBlocked)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

type globalOptions struct {
	logLevel string
}

func (g *globalOptions) logger() *zap.Logger {
	logger, err := logging.New(config.LogConfig{Level: g.logLevel, Format: "console"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func rootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:           "compatctl",
		Short:         "Check PC builds against compatibility rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(checkCmd(&opts))
	cmd.AddCommand(rulesCmd(&opts))
	return cmd
}
