package cli

import (
	"context"
	"fmt"

	"prepforge/internal/ai"
	"prepforge/internal/common"
	"prepforge/internal/errors"
	"prepforge/internal/types"
	"prepforge/internal/utils"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [job-file]",
	Short: "Analyze a job posting for a candidate",
	Long: `Analyze a job posting from a candidate's perspective: the role and
seniority it describes, the skills it demands, its experience expectations
and the likely focus of its interviews.

The posting can be a plain text file or a screenshot (.png, .jpg, .jpeg or
.webp). When the model cannot be reached the command still produces a
minimal analysis so downstream tooling has something to work with.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if analyzeOpts.OutputFormat == "" {
			analyzeOpts.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(analyzeOpts.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeOpts common.CommandConfig
var analyzeCompany string

func init() {
	flags := analyzeCmd.Flags()
	flags.StringVarP(&analyzeOpts.OutputFile, "output", "o", "", "Write output to this file instead of stdout")
	flags.StringVar(&analyzeOpts.OutputFormat, "format", "", "Output format: json, text or markdown")
	flags.StringVarP(&analyzeCompany, "company", "c", "", "Company the posting belongs to (required)")
	_ = analyzeCmd.MarkFlagRequired("company")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// buildJobInput reads a job posting from a text file or a screenshot and
// packages it for analysis
func buildJobInput(logger *errors.Logger, filename, company string) (types.AnalyzeJobInput, error) {
	files := common.NewFileProcessor(logger)

	if utils.IsImageFile(filename) {
		data, mimeType, err := files.ReadImageFile(filename)
		if err != nil {
			return types.AnalyzeJobInput{}, err
		}
		return types.AnalyzeJobInput{
			ImageData:     data,
			ImageMIMEType: mimeType,
			CompanyName:   company,
		}, nil
	}

	contents, err := files.ValidateAndReadFiles(filename)
	if err != nil {
		return types.AnalyzeJobInput{}, err
	}
	return types.AnalyzeJobInput{
		JobDescription: contents[0],
		CompanyName:    company,
	}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	client := ai.NewClient(cfg, logger)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AI client", "error", err)
		}
	}()

	input, err := buildJobInput(logger, args[0], analyzeCompany)
	if err != nil {
		return err
	}

	logDetails := func(input types.AnalyzeJobInput, cfg common.CommandConfig) {
		logger.Info("Starting job analysis",
			"company", input.CompanyName, "job_chars", len(input.JobDescription),
			"image_bytes", len(input.ImageData), "output_format", cfg.OutputFormat)
	}

	// The client degrades to a minimal fallback analysis on failure and
	// logs the cause; the error return is informational only
	analyzeOperation := func(ctx context.Context, input types.AnalyzeJobInput) (types.JobAnalysis, *ai.TokenUsage, error) {
		analysis, usage, _ := client.AnalyzeJob(ctx, input)
		return analysis, usage, nil
	}

	if err := common.RunAICommandWithInput(ctx, logger, analyzeOpts, input, analyzeOperation, logDetails); err != nil {
		return fmt.Errorf("failed to analyze job posting: %w", err)
	}
	logger.Info("Job analysis completed successfully")
	return nil
}
