package common

import (
	"fmt"
	"strings"

	"prepforge/internal/errors"
	"prepforge/internal/formatters"
)

// CommandConfig carries the output flags shared by CLI commands.
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler formats results and writes them to a file or stdout.
type OutputHandler struct {
	files   *FileProcessor
	formats *formatters.FormatterRegistry
	logger  *errors.Logger
}

func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		files:   NewFileProcessor(logger),
		formats: formatters.GlobalRegistry,
		logger:  logger,
	}
}

// HandleOutput renders data in the configured format and writes it to the
// configured destination, stdout when no file is given.
func (o *OutputHandler) HandleOutput(data any, cfg CommandConfig) error {
	if err := o.files.ValidateOutputFile(cfg.OutputFile); err != nil {
		return err
	}

	output, err := o.formats.Format(data, cfg.OutputFormat)
	if err != nil {
		supported := strings.Join(o.formats.GetSupportedFormats(), ", ")
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s (supported: %s)", cfg.OutputFormat, supported), err)
	}

	if cfg.OutputFile == "" {
		fmt.Print(output)
		return nil
	}

	if err := o.files.WriteFile(cfg.OutputFile, output); err != nil {
		return err // already wrapped by WriteFile
	}
	o.logger.Info("Output written successfully",
		"file", cfg.OutputFile, "format", cfg.OutputFormat)
	return nil
}
