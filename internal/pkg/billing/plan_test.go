package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pro", "pro"},
		{"PRO", "pro"},
		{"  pro_early  ", "pro_early"},
		{"free", "free"},
		{"", "free"},
		{"enterprise", "free"},
		{"trial", "free"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePlan(tt.input), "input %q", tt.input)
	}
}

func TestPlanRank(t *testing.T) {
	// pro and pro_early are the same tier; only free ranks below them.
	assert.Equal(t, planRank("pro"), planRank("pro_early"))
	assert.Greater(t, planRank("pro"), planRank("free"))
	assert.Equal(t, planRank("free"), planRank("garbage"))
}

func TestNormalizeInterval(t *testing.T) {
	assert.Equal(t, "month", normalizeInterval("month"))
	assert.Equal(t, "year", normalizeInterval(" YEAR "))
	assert.Equal(t, "unknown", normalizeInterval(""))
	assert.Equal(t, "unknown", normalizeInterval("weekly"))
}
