// Package retrieval turns a token set into bounded query variants and ranks
// the candidates they retrieve. Variant generation is deterministic and
// synonym-free: reorderings, windows and drop-one shapes over what the user
// actually said, never subsets of subsets.
package retrieval

import (
	"strings"

	"github.com/felemax/felia/internal/catalog"
	"github.com/felemax/felia/internal/textnorm"
)

// Plan is the retrieval input assembled by the orchestrator.
type Plan struct {
	Q      string
	Must   []string
	Not    []string
	Units  map[string]string
	Family string
}

// BuildVariants emits up to target deduplicated query shapes. Two variants
// are the same iff their token lists are equal as ordered sequences.
func BuildVariants(plan Plan, target int) []catalog.Query {
	if target <= 0 {
		target = 25
	}

	base := textnorm.TokenizeQuery(plan.Q)
	for _, m := range plan.Must {
		base = append(base, textnorm.TokenizeQuery(m)...)
	}
	if v := textnorm.Fold(plan.Units["mm"]); v != "" {
		base = append(base, v+"mm")
	}
	if v := textnorm.Fold(plan.Units["in"]); v != "" {
		base = append(base, v+`"`)
	}
	if v := textnorm.Fold(plan.Units["m"]); v != "" {
		base = append(base, v+"m")
	}

	tokens := dedupTokens(base)
	nots := make([]string, 0, len(plan.Not))
	for _, n := range plan.Not {
		if f := textnorm.Fold(n); f != "" {
			nots = append(nots, f)
		}
	}

	var variants []catalog.Query
	seen := map[string]bool{}
	push := func(toks []string) bool {
		if len(toks) == 0 || len(variants) >= target {
			return len(variants) >= target
		}
		key := strings.Join(toks, "\x00")
		if seen[key] {
			return false
		}
		seen[key] = true
		variants = append(variants, catalog.Query{Tokens: toks, Not: nots, Family: plan.Family})
		return len(variants) >= target
	}

	for _, seed := range seedVariants(tokens) {
		if push(seed) {
			return variants
		}
	}

	n := len(tokens)
	if n >= 4 {
		for i := 0; i+2 <= n; i++ {
			if push(tokens[i : i+2]) {
				return variants
			}
		}
		for i := 0; i+3 <= n; i++ {
			if push(tokens[i : i+3]) {
				return variants
			}
		}
	}
	if n >= 2 {
		for i := 0; i < n; i++ {
			dropped := make([]string, 0, n-1)
			dropped = append(dropped, tokens[:i]...)
			dropped = append(dropped, tokens[i+1:]...)
			if push(dropped) {
				return variants
			}
		}
	}
	return variants
}

// seedVariants yields the high-priority shapes: the list as given, its
// reversal, a naive singular/plural toggle, and head/tail windows.
func seedVariants(tokens []string) [][]string {
	var out [][]string
	if len(tokens) == 0 {
		return out
	}
	out = append(out, tokens)
	if len(tokens) > 1 {
		rev := make([]string, len(tokens))
		for i, t := range tokens {
			rev[len(tokens)-1-i] = t
		}
		out = append(out, rev)
	}
	toggled := make([]string, len(tokens))
	diff := false
	for i, t := range tokens {
		toggled[i] = togglePlural(t)
		if toggled[i] != t {
			diff = true
		}
	}
	if diff {
		out = append(out, toggled)
	}
	if len(tokens) >= 2 {
		out = append(out, tokens[:2], tokens[len(tokens)-2:])
	}
	if len(tokens) >= 3 {
		out = append(out, tokens[:3], tokens[len(tokens)-3:])
	}
	return out
}

// togglePlural strips a trailing "s" or appends one. Generic morphology,
// not a synonym table.
func togglePlural(tok string) string {
	if strings.HasSuffix(tok, "s") && len(tok) > 1 {
		return tok[:len(tok)-1]
	}
	return tok + "s"
}

func dedupTokens(tokens []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tokens {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
