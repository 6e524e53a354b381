// Package signals extracts automation, budget and business-size signals from
// raw page HTML using ordered keyword tables.
package signals

import "strings"

// Rule associates a label with the substrings that identify it.
type Rule[T comparable] struct {
	Label    T
	Patterns []string
}

// Matches reports whether any of the rule's patterns occur in text.
func (r Rule[T]) Matches(text string) bool {
	return AnyMatch(r.Patterns, text)
}

// FirstMatch returns the label of the first rule with a matching pattern.
func FirstMatch[T comparable](rules []Rule[T], text string) (T, bool) {
	for _, r := range rules {
		if r.Matches(text) {
			return r.Label, true
		}
	}
	var zero T
	return zero, false
}

// AllMatches returns the labels of every matching rule, in table order.
func AllMatches[T comparable](rules []Rule[T], text string) []T {
	var out []T
	for _, r := range rules {
		if r.Matches(text) {
			out = append(out, r.Label)
		}
	}
	return out
}

// AnyMatch reports whether any pattern occurs in text.
func AnyMatch(patterns []string, text string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// CountMatches returns how many distinct patterns occur in text.
func CountMatches(patterns []string, text string) int {
	n := 0
	for _, p := range patterns {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}
