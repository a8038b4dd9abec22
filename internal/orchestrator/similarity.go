package orchestrator

import "strings"

// jaccardSimilarity returns the Jaccard index of the lowercase word sets of
// a and b, in [0,1]. Used by adaptive chunk selection to rank remaining
// chunks against the most recently committed translation.
func jaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	small, large := setA, setB
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for w := range small {
		if _, ok := large[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
