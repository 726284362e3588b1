package cli

import (
	"context"

	"prepforge/internal/config"
	"prepforge/internal/errors"

	"github.com/spf13/cobra"
)

// ctxKey namespaces the values Execute attaches to the command context.
type ctxKey int

const (
	ctxConfig ctxKey = iota
	ctxLogger
)

var rootCmd = &cobra.Command{
	Use:   "prepforge",
	Short: "A CLI tool for AI-assisted interview preparation",
	Long: `Prepforge turns a job posting into an interview preparation kit:
an analysis of the role, a week-by-week study plan, a screening quiz and a
set of coding challenges. Postings can be supplied as text or as a
screenshot.`,
}

func init() {
	rootCmd.AddCommand(analyzeCmd, prepCmd, versionCmd, serveCmd)
}

// Execute runs the CLI with the config and logger attached to the command
// context for subcommands to pick up.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, ctxConfig, cfg)
	ctx = context.WithValue(ctx, ctxLogger, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(ctxConfig).(*config.Config)
	if !ok {
		panic("config not found in context")
	}
	return cfg
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	logger, ok := ctx.Value(ctxLogger).(*errors.Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}
