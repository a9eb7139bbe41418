package service

import (
	"regexp"
	"strings"
)

// Best-effort post-processing of model output. None of this is reliable;
// it only decorates the raw text.

var bulletLine = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

// ExtractKeyPoints returns bullet and numbered list items
func ExtractKeyPoints(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			point := strings.TrimSpace(strings.Trim(m[1], "*"))
			if point != "" {
				points = append(points, point)
			}
		}
	}
	return points
}

// complexityClasses in match priority order
var complexityClasses = []struct {
	needle string
	label  string
}{
	{"o(n^2)", "O(n²)"},
	{"o(n²)", "O(n²)"},
	{"o(n log n)", "O(n log n)"},
	{"o(log n)", "O(log n)"},
	{"o(n)", "O(n)"},
	{"o(1)", "O(1)"},
}

// DetectComplexity returns the first complexity class mentioned in text
func DetectComplexity(text string) string {
	lower := strings.ToLower(text)
	for _, c := range complexityClasses {
		if strings.Contains(lower, c.needle) {
			return c.label
		}
	}
	return ""
}

var suggestionTriggers = []struct {
	phrases    []string
	suggestion string
}{
	{[]string{"error handling", "unhandled", "panic"}, "Add error handling for failure cases"},
	{[]string{"performance", "inefficient", "slow"}, "Review the performance of the hot path"},
	{[]string{"nested loop"}, "Consider replacing nested loops with a map or a better algorithm"},
	{[]string{"readability", "hard to read", "naming"}, "Improve naming and readability"},
	{[]string{"security", "injection", "sanitize"}, "Validate and sanitize external input"},
	{[]string{"deprecated"}, "Replace deprecated APIs"},
	{[]string{"unit test", "tests", "testing"}, "Add tests covering the edge cases"},
}

// DetectSuggestions derives suggestions from trigger phrases in text
func DetectSuggestions(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, t := range suggestionTriggers {
		for _, p := range t.phrases {
			if strings.Contains(lower, p) {
				out = append(out, t.suggestion)
				break
			}
		}
	}
	return out
}

var (
	titleLine = regexp.MustCompile(`(?i)^(?:#{1,6}\s+|title:\s*)(.+)$`)
	boldLine  = regexp.MustCompile(`^\*\*(.+)\*\*$`)
)

// SplitTitle separates a leading title line ("# X", "Title: X" or "**X**")
// from the body. Text without one is returned unchanged.
func SplitTitle(text string) (string, string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)

	var title string
	if m := titleLine.FindStringSubmatch(first); m != nil {
		title = m[1]
	} else if m := boldLine.FindStringSubmatch(first); m != nil {
		title = m[1]
	}
	title = strings.TrimSpace(strings.Trim(title, `"*`))
	if title == "" {
		return "", text
	}
	return title, strings.TrimSpace(rest)
}
