package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	textExtensions  = []string{".txt", ".md", ".markdown", ".text"}
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}
)

// ValidateInputFile checks that path names an existing, readable file.
func ValidateInputFile(path string) error {
	if path == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("file does not exist: %s", path)
	case err != nil:
		return fmt.Errorf("cannot access file %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	// Stat alone does not prove read permission.
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", path, err)
	}
	return nil
}

// ValidateOutputFile ensures the output path's directory exists, creating it
// when missing. An empty path means stdout.
func ValidateOutputFile(path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}

func fileExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsTextFile reports whether the file has a text-based extension
func IsTextFile(path string) bool {
	return slices.Contains(textExtensions, fileExt(path))
}

// IsImageFile reports whether the file has a supported screenshot extension
func IsImageFile(path string) bool {
	return slices.Contains(imageExtensions, fileExt(path))
}

// ImageMIMEType returns the MIME type for a screenshot file, or an empty
// string for unsupported extensions
func ImageMIMEType(path string) string {
	switch fileExt(path) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// FormatFileSize renders a byte count in binary units for display.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	exp := 0
	for value >= unit {
		value /= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", value, "KMGTPE"[exp-1])
}
