package cli

import (
	"context"
	"fmt"

	"prepforge/internal/ai"
	"prepforge/internal/common"
	"prepforge/internal/pipeline"
	"prepforge/internal/types"

	"github.com/spf13/cobra"
)

var prepCmd = &cobra.Command{
	Use:   "prep [job-file]",
	Short: "Build a complete preparation kit for a job posting",
	Long: `Run the full preparation pipeline for a job posting: analyze the
role, then generate a study plan, a screening quiz and a set of coding
challenges in parallel. The finished session is printed as one document.

The posting can be a plain text file or a screenshot (.png, .jpg, .jpeg or
.webp). Individual generators that fail degrade to built-in fallback
content instead of aborting the run.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if prepConfig.OutputFormat == "" {
			prepConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(prepConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runPrep,
}

var prepConfig common.CommandConfig
var prepCompany string

func init() {
	prepCmd.Flags().StringVarP(&prepConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	prepCmd.Flags().StringVar(&prepConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	prepCmd.Flags().StringVarP(&prepCompany, "company", "c", "", "Company the posting belongs to (required)")
	_ = prepCmd.MarkFlagRequired("company")

	// Add completion for format flag
	_ = prepCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runPrep(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	client := ai.NewClient(cfg, logger)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AI client", "error", err)
		}
	}()

	p := pipeline.New(client, logger)

	input, err := buildJobInput(logger, args[0], prepCompany)
	if err != nil {
		return err
	}

	logDetails := func(input types.AnalyzeJobInput, cfg common.CommandConfig) {
		logger.Info("Starting preparation run",
			"company", input.CompanyName,
			"job_chars", len(input.JobDescription),
			"image_bytes", len(input.ImageData),
			"output_format", cfg.OutputFormat)
	}

	prepOperation := func(ctx context.Context, input types.AnalyzeJobInput) (pipeline.Session, *ai.TokenUsage, error) {
		tokenUsage, runErr := p.Run(ctx, input)
		if runErr != nil {
			return pipeline.Session{}, tokenUsage, runErr
		}
		return p.Snapshot(), tokenUsage, nil
	}

	err = common.RunAICommandWithInput(
		cmd.Context(),
		logger,
		prepConfig,
		input,
		prepOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to build preparation kit: %w", err)
	}
	logger.Info("Preparation run completed successfully")
	return nil
}
