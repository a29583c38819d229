package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/felemax/felia/internal/textnorm"
)

// indexedDoc is what gets analyzed into the full-text index. Every field is
// folded before indexing so prefix queries can stay unanalyzed.
type indexedDoc struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Category string `json:"category"`
	UOM      string `json:"uom"`
}

// snapshot is one immutable generation of the index. Rebuilds construct a
// fresh snapshot off to the side and swap the pointer; the live structure is
// never mutated under readers.
type snapshot struct {
	index   bleve.Index
	entries []Entry
	byDoc   map[string]Entry
}

// Indexed is the full-text variant of the catalog: prefix-expanded token
// queries with a substring fallback, in-stock entries sorted first.
type Indexed struct {
	mu   sync.RWMutex
	snap *snapshot
}

// NewIndexed builds the initial index generation from loaded entries.
func NewIndexed(entries []Entry) (*Indexed, error) {
	snap, err := buildSnapshot(entries)
	if err != nil {
		return nil, err
	}
	return &Indexed{snap: snap}, nil
}

func buildSnapshot(entries []Entry) (*snapshot, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("building catalog index: %w", err)
	}
	byDoc := make(map[string]Entry, len(entries))
	for i, e := range entries {
		docID := strconv.Itoa(i)
		byDoc[docID] = e
		doc := indexedDoc{
			Name:     e.NormName,
			Code:     e.NormCode,
			Category: textnorm.Fold(e.Category),
			UOM:      textnorm.Fold(e.UnitOfMeasure),
		}
		if err := idx.Index(docID, doc); err != nil {
			return nil, fmt.Errorf("indexing %q: %w", e.Code, err)
		}
	}
	return &snapshot{index: idx, entries: entries, byDoc: byDoc}, nil
}

// Rebuild replaces the whole index atomically with respect to readers.
func (x *Indexed) Rebuild(entries []Entry) error {
	snap, err := buildSnapshot(entries)
	if err != nil {
		return err
	}
	x.mu.Lock()
	old := x.snap
	x.snap = snap
	x.mu.Unlock()
	if old != nil {
		_ = old.index.Close()
	}
	return nil
}

// Len reports the number of records in the live generation.
func (x *Indexed) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.snap.entries)
}

// Search answers one token-set query. Candidates come from the full-text
// path (falling back to a substring scan when it yields nothing) and are
// then run through the same soft-AND / hard-NOT / family policy as the
// linear catalog.
func (x *Indexed) Search(q Query) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	tokens, nots, family := foldQuery(q)
	candidates := x.snap.fullText(tokens, 200)
	if len(candidates) == 0 {
		candidates = x.snap.substringScan(strings.Join(tokens, " "), 200)
	}
	var out []Entry
	for _, e := range candidates {
		if matches(e, tokens, nots, family) {
			out = append(out, e)
		}
	}
	stockFirst(out)
	return out
}

// SearchText answers a free-text query the way the full-text path does on
// its own, without the token policy. Used by the operator sample endpoint.
func (x *Indexed) SearchText(text string, limit int) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := x.snap.fullText(textnorm.TokenizeQuery(text), limit)
	if len(out) == 0 {
		out = x.snap.substringScan(textnorm.Fold(text), limit)
	}
	stockFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fullText ORs prefix-expanded tokens over the indexed fields. Single-rune
// tokens are ignored; they expand to most of the catalog.
func (s *snapshot) fullText(tokens []string, limit int) []Entry {
	queries := bleve.NewDisjunctionQuery()
	n := 0
	for _, tok := range tokens {
		if len(tok) <= 1 {
			continue
		}
		queries.AddQuery(bleve.NewPrefixQuery(tok))
		n++
	}
	if n == 0 {
		return nil
	}
	req := bleve.NewSearchRequestOptions(queries, limit, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil
	}
	out := make([]Entry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if e, ok := s.byDoc[hit.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// substringScan is the LIKE-style fallback over the folded name.
func (s *snapshot) substringScan(needle string, limit int) []Entry {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return nil
	}
	var out []Entry
	for _, e := range s.entries {
		if strings.Contains(e.NormName, needle) {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// stockFirst orders in-stock entries (highest quantity first, then name)
// ahead of out-of-stock entries (name only).
func stockFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.InStock() != b.InStock() {
			return a.InStock()
		}
		if a.InStock() && a.QtyAvailable != b.QtyAvailable {
			return a.QtyAvailable > b.QtyAvailable
		}
		return a.Name < b.Name
	})
}
