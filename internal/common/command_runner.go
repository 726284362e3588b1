package common

import (
	"context"
	"fmt"
	"os"

	"prepforge/internal/ai"
	"prepforge/internal/errors"
)

// CreateInputFunc assembles an operation input from file contents.
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc logs the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is the shape shared by all AI operations: context in,
// result plus token usage out.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// RunAICommand reads and validates the input files, assembles the operation
// input, and hands off to RunAICommandWithInput.
func RunAICommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cfg CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	contents, err := NewFileProcessor(logger).ValidateAndReadFiles(args...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	return RunAICommandWithInput(ctx, logger, cfg, input, aiOperation, logDetails)
}

// RunAICommandWithInput runs an AI operation whose input the caller has
// already assembled. Commands that mix text and binary sources (job postings
// can be screenshots) use this directly.
func RunAICommandWithInput[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cfg CommandConfig,
	input Input,
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	logDetails(input, cfg)

	result, usage, err := aiOperation(ctx, input)
	if err != nil {
		return err
	}
	reportTokenUsage(logger, usage)

	return NewOutputHandler(logger).HandleOutput(result, cfg)
}

func reportTokenUsage(logger *errors.Logger, usage *ai.TokenUsage) {
	if usage == nil {
		return
	}
	if logger == nil {
		fmt.Fprintf(os.Stderr, "AI token usage: input=%d, output=%d, total=%d\n",
			usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
		return
	}
	logger.Info("AI token usage",
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"total_tokens", usage.TotalTokens)
}
