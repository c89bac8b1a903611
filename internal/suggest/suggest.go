// Package suggest provides fuzzy matching and "did you mean" suggestions.
package suggest

import (
	"cmp"
	"slices"
	"strings"
)

// Scoring weights. Higher totals mean a closer match.
const (
	scoreExact = 1000

	// Users usually mistype the end of a name, not the start.
	scorePrefix   = 20
	scoreContains = 15
	scoreDistance = 5
)

// Similar returns up to n candidates close to target, best first. Matching
// is case-insensitive; candidates with nothing in common are dropped.
func Similar(target string, candidates []string, n int) []string {
	if n <= 0 {
		return nil
	}
	target = strings.ToLower(target)

	type match struct {
		value string
		score int
	}
	var matches []match
	for _, c := range candidates {
		if s := score(target, strings.ToLower(c)); s > 0 {
			matches = append(matches, match{c, s})
		}
	}
	slices.SortFunc(matches, func(a, b match) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.value, b.value)
	})

	out := make([]string, 0, min(n, len(matches)))
	for _, m := range matches[:min(n, len(matches))] {
		out = append(out, m.value)
	}
	return out
}

func score(a, b string) int {
	if a == b {
		return scoreExact
	}
	s := commonPrefix(a, b) * scorePrefix
	switch {
	case strings.Contains(b, a):
		s += len(a) * scoreContains
	case strings.Contains(a, b):
		s += len(b) * scoreContains
	}
	longest := max(len(a), len(b))
	if d := levenshtein(a, b); d <= longest/2 {
		s += (longest - d) * scoreDistance
	}
	return s
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// levenshtein is the byte-wise edit distance, using two rolling rows.
func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// NotFound formats "<entity> '<name>' not found" followed by any suggestions.
func NotFound(entity, name string, suggestions []string) string {
	var sb strings.Builder
	sb.WriteString(entity + " '" + name + "' not found")
	if len(suggestions) > 0 {
		sb.WriteString("\n\n  Did you mean?\n")
		for _, s := range suggestions {
			sb.WriteString("    • " + s + "\n")
		}
	}
	return sb.String()
}
