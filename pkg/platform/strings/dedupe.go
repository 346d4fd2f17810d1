// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// NormalizeSymbols trims, upper-cases and de-duplicates ticker symbols,
// dropping blanks. First occurrence wins, so caller order is preserved.
//
//	NormalizeSymbols([]string{" aapl", "MSFT", "Aapl", ""})
//	// []string{"AAPL", "MSFT"}
func NormalizeSymbols(values []string) []string {
	return dedupe(values, strings.ToUpper)
}

// DuplicateSymbols returns, in first-seen order, the normalised symbols that
// occur more than once in values.
func DuplicateSymbols(values []string) []string {
	counts := make(map[string]int, len(values))
	var dups []string
	for _, v := range values {
		key := strings.ToUpper(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		counts[key]++
		if counts[key] == 2 {
			dups = append(dups, key)
		}
	}
	return dups
}

// DedupeLower trims, lower-cases and de-duplicates identifiers such as
// category names. Order is preserved.
func DedupeLower(values []string) []string {
	return dedupe(values, strings.ToLower)
}

func dedupe(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		key := fold(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	return result
}
