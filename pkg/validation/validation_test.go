package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateServiceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple name", "checkout", false},
		{"with hyphen", "checkout-api", false},
		{"with dots and underscores", "checkout.api_v2", false},
		{"single character", "a", false},
		{"leading whitespace trimmed", "  checkout", false},
		{"empty", "", true},
		{"leading hyphen", "-checkout", true},
		{"spaces inside", "checkout api", true},
		{"sql injection attempt", "checkout'; DROP TABLE--", true},
		{"too long", strings.Repeat("a", 101), true},
		{"max length", strings.Repeat("a", 100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMetricName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"snake case", "cpu_usage", false},
		{"with digits", "latency_p99", false},
		{"empty", "", true},
		{"starts with digit", "99_latency", true},
		{"uppercase rejected", "CPU_Usage", true},
		{"hyphen rejected", "cpu-usage", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetricName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "checkout", SanitizeString("  checkout  "))
	assert.Equal(t, "checkout", SanitizeString("check\x00out"))
	assert.Equal(t, "checkout", SanitizeString("check\x1bout"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
	assert.Equal(t, "a\tb", SanitizeString("a\tb"))
}

func TestValidateInstanceBounds(t *testing.T) {
	assert.NoError(t, ValidateInstanceBounds(1, 10))
	assert.NoError(t, ValidateInstanceBounds(5, 5))
	assert.Error(t, ValidateInstanceBounds(0, 10))
	assert.Error(t, ValidateInstanceBounds(5, 3))
	assert.Error(t, ValidateInstanceBounds(1, 1001))
}
