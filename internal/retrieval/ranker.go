package retrieval

import (
	"sort"
	"strings"

	"github.com/felemax/felia/internal/catalog"
	"github.com/felemax/felia/internal/textnorm"
)

// Scoring constants. The NOT penalty deliberately outweighs a MUST hit plus
// the stock bonus: a single not-token is a near-veto. These values come from
// the tuned production behavior; change them together or not at all.
const (
	MustBonus  = 2.0
	NotPenalty = 3.0
	StockBonus = 1.5
	ScoreFloor = -1.5
	MaxResults = 4
)

// Score rates one entry against must/not tokens. Matching is substring,
// case- and accent-insensitive, over name plus code.
func Score(e catalog.Entry, must, not []string) float64 {
	haystack := e.NormName + " " + e.NormCode
	s := 0.0
	for _, m := range must {
		if f := textnorm.Fold(m); f != "" && strings.Contains(haystack, f) {
			s += MustBonus
		}
	}
	for _, n := range not {
		if f := textnorm.Fold(n); f != "" && strings.Contains(haystack, f) {
			s -= NotPenalty
		}
	}
	if e.InStock() {
		s += StockBonus
	}
	return s
}

// RankAndCut deduplicates candidates by code (first occurrence wins),
// stable-sorts by descending score and returns at most MaxResults entries,
// dropping anything at or below the floor.
func RankAndCut(candidates []catalog.Entry, must, not []string) []catalog.Entry {
	seen := map[string]bool{}
	var uniq []catalog.Entry
	for _, c := range candidates {
		key := c.Code
		if key == "" {
			key = c.Name
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, c)
	}

	scores := make([]float64, len(uniq))
	for i, c := range uniq {
		scores[i] = Score(c, must, not)
	}
	order := make([]int, len(uniq))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	var out []catalog.Entry
	for _, i := range order {
		if len(out) >= MaxResults {
			break
		}
		if scores[i] <= ScoreFloor {
			continue
		}
		out = append(out, uniq[i])
	}
	return out
}
