// Package catalog loads the product source and answers token-set queries.
// Matching policy is soft AND / hard NOT: positive tokens need a majority of
// hits once there are three or more, negative tokens are an absolute
// exclusion. Ranking is not done here.
package catalog

import (
	"strings"

	"github.com/felemax/felia/internal/textnorm"
)

// Entry is one immutable catalog record. NormName and NormCode are folded
// once at load time and never recomputed per query.
type Entry struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	NormName      string  `json:"-"`
	Code          string  `json:"default_code"`
	NormCode      string  `json:"-"`
	QtyAvailable  float64 `json:"qty_available"`
	Price         float64 `json:"list_price"`
	Category      string  `json:"categ"`
	UnitOfMeasure string  `json:"uom"`
}

// InStock reports whether the entry has quantity available.
func (e Entry) InStock() bool { return e.QtyAvailable > 0 }

// Query is one token-set query shape against the catalog.
type Query struct {
	Tokens []string
	Not    []string
	Family string
}

// Searcher is the read interface the orchestrator depends on.
type Searcher interface {
	Search(q Query) []Entry
}

// minHits implements the soft AND: with three or more tokens a majority of
// two suffices, with one or two every token must hit.
func minHits(needed int) int {
	if needed >= 3 {
		return 2
	}
	return needed
}

// matches applies the full matching policy against a folded entry.
func matches(e Entry, tokens, nots []string, family string) bool {
	name, code := e.NormName, e.NormCode
	for _, n := range nots {
		if strings.Contains(name, n) || strings.Contains(code, n) {
			return false
		}
	}
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(name, tok) || strings.Contains(code, tok) {
			hits++
		}
	}
	if hits < minHits(len(tokens)) {
		return false
	}
	if family != "" && !strings.Contains(name, family) && !strings.Contains(code, family) {
		return false
	}
	return true
}

// foldQuery folds every term of q once, dropping empties.
func foldQuery(q Query) (tokens, nots []string, family string) {
	for _, t := range q.Tokens {
		if f := textnorm.Fold(t); f != "" {
			tokens = append(tokens, f)
		}
	}
	for _, t := range q.Not {
		if f := textnorm.Fold(t); f != "" {
			nots = append(nots, f)
		}
	}
	family = textnorm.Fold(q.Family)
	return tokens, nots, family
}
