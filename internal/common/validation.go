package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateOutputFormat rejects formats outside the configured set. An empty
// set means no restriction. Matching is case sensitive because formatter
// names are registered lowercase.
func ValidateOutputFormat(format string, supported []string) error {
	if len(supported) == 0 || slices.Contains(supported, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s' (supported: %s)",
		format, strings.Join(supported, ", "))
}
