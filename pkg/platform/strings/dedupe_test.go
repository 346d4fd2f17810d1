package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbols(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "upper-cases", input: []string{"aapl", "Msft"}, expected: []string{"AAPL", "MSFT"}},
		{name: "case-insensitive duplicates keep first position", input: []string{"B", "a", "b", "C", "A"}, expected: []string{"B", "A", "C"}},
		{name: "drops blanks", input: []string{" ", "", "ibm "}, expected: []string{"IBM"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSymbols(tt.input))
		})
	}
}

func TestDedupeLower(t *testing.T) {
	got := DedupeLower([]string{"Settlement_Enterprise", " settlement_enterprise", "OTHER_BDS_ACTIVITIES"})
	assert.Equal(t, []string{"settlement_enterprise", "other_bds_activities"}, got)
}

func TestDuplicateSymbols(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "no repeats", input: []string{"A", "B"}, expected: nil},
		{name: "case and space folded", input: []string{"b", "A", " B", "a", "b"}, expected: []string{"B", "A"}},
		{name: "blanks ignored", input: []string{"", " ", "C"}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DuplicateSymbols(tt.input))
		})
	}
}
