package catalog

// Local answers queries with a linear scan over the loaded records.
// Results preserve source order.
type Local struct {
	entries []Entry
}

// NewLocal wraps already-loaded entries.
func NewLocal(entries []Entry) *Local {
	return &Local{entries: entries}
}

// Len reports the number of loaded records.
func (l *Local) Len() int { return len(l.entries) }

// Entries returns the loaded records in source order.
func (l *Local) Entries() []Entry { return l.entries }

func (l *Local) Search(q Query) []Entry {
	tokens, nots, family := foldQuery(q)
	var out []Entry
	for _, e := range l.entries {
		if matches(e, tokens, nots, family) {
			out = append(out, e)
		}
	}
	return out
}
