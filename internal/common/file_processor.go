package common

import (
	"fmt"
	"os"
	"path/filepath"

	"prepforge/internal/errors"
	"prepforge/internal/utils"
)

// FileProcessor wraps file IO with typed errors and logging.
type FileProcessor struct {
	logger *errors.Logger
}

func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile returns the file's content, with missing-file and unreadable-file
// cases mapped to their error codes.
func (p *FileProcessor) ReadFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return "", errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("File not found: %s", path), err)
	case err != nil:
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	return string(content), nil
}

// WriteFile writes content, creating parent directories as needed.
func (p *FileProcessor) WriteFile(path, content string) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", path), err)
	}
	return nil
}

// ensureParentDir creates the directory portion of path unless it is the
// current directory.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory: %s", dir), err)
	}
	return nil
}

// ReadImageFile reads a screenshot file and resolves its MIME type from the
// file extension
func (p *FileProcessor) ReadImageFile(path string) ([]byte, string, error) {
	if err := utils.ValidateInputFile(path); err != nil {
		return nil, "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", path), err)
	}

	if !utils.IsImageFile(path) {
		return nil, "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Unsupported screenshot format: %s (want .png, .jpg, .jpeg or .webp)", path), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read screenshot: %s", path), err)
	}

	return data, utils.ImageMIMEType(path), nil
}

// ValidateAndReadFiles validates each input file and returns its content,
// in argument order. A likely-binary file only draws a warning.
func (p *FileProcessor) ValidateAndReadFiles(paths ...string) ([]string, error) {
	contents := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := utils.ValidateInputFile(path); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", path), err)
		}
		if !utils.IsTextFile(path) {
			p.warnNotText(path)
		}

		content, err := p.ReadFile(path)
		if err != nil {
			return nil, err // already wrapped by ReadFile
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func (p *FileProcessor) warnNotText(path string) {
	if p.logger != nil {
		p.logger.Warn("File may not be a text file", "filename", path)
		return
	}
	fmt.Fprintf(os.Stderr, "Warning: %s may not be a text file\n", path)
}

// ValidateOutputFile checks an output path; empty means stdout and is fine.
func (p *FileProcessor) ValidateOutputFile(path string) error {
	if path == "" {
		return nil
	}
	if err := utils.ValidateOutputFile(path); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", path), err)
	}
	return nil
}
