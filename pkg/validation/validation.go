package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Service name must be alphanumeric with hyphens/underscores/dots, 1-100 chars
	serviceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,99}$`)

	// Metric name must be lowercase snake_case, 1-64 chars
	metricNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateServiceName checks if a service name is valid
func ValidateServiceName(name string) error {
	name = SanitizeString(name)

	if name == "" {
		return errors.New("service name cannot be empty")
	}

	if len(name) > 100 {
		return errors.New("service name must not exceed 100 characters")
	}

	if !serviceNameRegex.MatchString(name) {
		return errors.New("service name must start with alphanumeric and contain only letters, numbers, hyphens, underscores, and dots")
	}

	return nil
}

// ValidateMetricName checks if a metric name is valid
func ValidateMetricName(name string) error {
	name = SanitizeString(name)

	if name == "" {
		return errors.New("metric name cannot be empty")
	}

	if !metricNameRegex.MatchString(name) {
		return errors.New("metric name must be lowercase snake_case")
	}

	return nil
}

// ValidateInstanceBounds checks if min/max instance counts are valid
func ValidateInstanceBounds(min, max int) error {
	if min < 1 {
		return errors.New("minimum instances must be at least 1")
	}

	if max < min {
		return errors.New("maximum instances must be greater than or equal to minimum instances")
	}

	if max > 1000 {
		return errors.New("maximum instances cannot exceed 1000")
	}

	return nil
}
