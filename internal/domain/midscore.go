package domain

import "sort"

// MidScore derives the borrower's representative score from the bureau scores.
// It is defined only for a full tri-merge result: exactly three scores, one per
// bureau. Any other count yields nil — never an average, never a guess from
// partial data.
func MidScore(scores []BureauScore) *int {
	if len(scores) != 3 {
		return nil
	}
	seen := make(map[Bureau]bool, 3)
	values := make([]int, 0, 3)
	for _, s := range scores {
		if seen[s.Bureau] {
			return nil
		}
		seen[s.Bureau] = true
		values = append(values, s.Score)
	}
	sort.Ints(values)
	mid := values[1]
	return &mid
}
