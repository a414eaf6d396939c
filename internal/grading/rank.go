package grading

import "math"

// Rank computes competition-style positions for a list of scores: tied
// scores share the same (lowest) rank and consume rank slots, so two 90s
// both rank 1 and a following 85 ranks 3. The output always has the same
// length as the input; NaN entries are tolerated and rank below every
// numeric score. An empty input yields an empty slice.
func Rank(scores []float64) []int {
	ranks := make([]int, len(scores))
	if len(scores) == 0 {
		return ranks
	}

	numeric := 0
	for _, s := range scores {
		if !math.IsNaN(s) {
			numeric++
		}
	}

	for i, s := range scores {
		if math.IsNaN(s) {
			// All NaN entries tie for the slot after every numeric score.
			ranks[i] = numeric + 1
			continue
		}
		higher := 0
		for _, other := range scores {
			if !math.IsNaN(other) && other > s {
				higher++
			}
		}
		ranks[i] = higher + 1
	}
	return ranks
}

// RemarkFor bands an overall average into the report-card remark text.
func RemarkFor(average float64) string {
	switch {
	case average >= 75:
		return "Excellent"
	case average >= 60:
		return "Good"
	case average >= 45:
		return "Fair"
	default:
		return "Needs improvement"
	}
}
