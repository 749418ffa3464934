package common

import (
	"fmt"
	"slices"
	"strings"

	"careercoach/internal/formatters"
)

// ResolveOutputFormat applies the default format when none was requested and
// checks the result against the configured formats
func ResolveOutputFormat(requested, defaultFormat string, supported []string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(requested))
	if format == "" {
		format = defaultFormat
	}

	formats := SupportedFormats(supported)
	if !slices.Contains(formats, format) {
		return "", fmt.Errorf("unsupported format '%s'. Supported formats: %s",
			format, strings.Join(formats, ", "))
	}
	return format, nil
}

// SupportedFormats returns the configured formats that have a formatter
func SupportedFormats(configured []string) []string {
	available := formatters.GlobalRegistry.GetSupportedFormats()
	formats := make([]string, 0, len(configured))
	for _, f := range configured {
		if slices.Contains(available, f) {
			formats = append(formats, f)
		}
	}
	return formats
}
