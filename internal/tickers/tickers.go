// Package tickers turns user input into the ordered, deduplicated list of
// symbols a batch runs over.
package tickers

import (
	"strings"
	"unicode"
)

// Normalize trims and uppercases every entry, drops empty ones and removes
// duplicates while keeping the first-seen order. An empty result is valid.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))

	for _, entry := range raw {
		ticker := strings.ToUpper(strings.TrimSpace(entry))
		if ticker == "" {
			continue
		}
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}
		out = append(out, ticker)
	}

	return out
}

// FromText splits free-text input on commas, semicolons and whitespace.
func FromText(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	return Normalize(fields)
}
