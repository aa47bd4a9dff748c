// Package fuzzy ranks short names by edit distance. It backs owner-label suggestions.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Match is one ranked candidate.
type Match struct {
	Index    int
	Distance int
}

// LevenshteinDistance returns the number of single-rune edits between two strings
// after case folding and whitespace collapsing.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalizeString(s1))
	r2 := []rune(normalizeString(s2))

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// NameDistance compares a free-text owner label against a display name.
// A label matching any single word of the name ("Dana" vs "Dana Whitfield") scores by that word.
func NameDistance(label, name string) int {
	best := LevenshteinDistance(label, name)
	for _, word := range strings.Fields(normalizeString(name)) {
		if d := LevenshteinDistance(label, word); d < best {
			best = d
		}
	}
	return best
}

// Rank returns candidates within maxDistance of label, closest first.
// Ties keep the input order.
func Rank(label string, candidates []string, maxDistance int) []Match {
	if strings.TrimSpace(label) == "" {
		return nil
	}

	var matches []Match
	for i, c := range candidates {
		if d := NameDistance(label, c); d <= maxDistance {
			matches = append(matches, Match{Index: i, Distance: d})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})
	return matches
}

// Threshold scales the allowed distance with label length.
func Threshold(label string) int {
	n := len([]rune(normalizeString(label)))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	}
	return 2
}

// normalizeString lowercases, strips combining marks and collapses whitespace.
func normalizeString(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
