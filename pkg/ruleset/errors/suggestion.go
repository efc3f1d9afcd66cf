package errors

import (
	"fmt"
	"strings"
)

// SuggestName proposes the closest valid name for an unknown one, or lists
// the valid names when nothing is close.
func SuggestName(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	best, bestDist := "", 1000
	for _, v := range valid {
		if d := levenshtein(strings.ToLower(unknown), strings.ToLower(v)); d < bestDist {
			best, bestDist = v, d
		}
	}
	if bestDist < 5 {
		return fmt.Sprintf("Did you mean '%s'?", best)
	}
	return fmt.Sprintf("Valid values: %s", strings.Join(valid, ", "))
}

// SuggestMissingField suggests adding a required field.
func SuggestMissingField(fieldName, exampleValue string) string {
	if exampleValue != "" {
		return fmt.Sprintf("Add '%s: %s'", fieldName, exampleValue)
	}
	return fmt.Sprintf("Add a '%s' field", fieldName)
}

func levenshtein(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
