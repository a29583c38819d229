package catalog

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/felemax/felia/internal/textnorm"
)

func entry(id int, name, code string, qty float64) Entry {
	return Entry{
		ID:           id,
		Name:         name,
		NormName:     textnorm.Fold(name),
		Code:         code,
		NormCode:     textnorm.Fold(code),
		QtyAvailable: qty,
	}
}

func testEntries() []Entry {
	return []Entry{
		entry(1, "Perfil C galvanizado 100mm", "PC-100", 5),
		entry(2, "Perfil U estructural 80mm", "PU-80", 0),
		entry(3, "Omega para durlock de madera", "OM-01", 3),
	}
}

func TestLocalSearchSoftAND(t *testing.T) {
	cat := NewLocal(testEntries())

	// Two tokens require both; only "Perfil C" carries both.
	hits := cat.Search(Query{Tokens: []string{"perfil", "c"}})
	if len(hits) != 1 || hits[0].Code != "PC-100" {
		t.Fatalf("expected only PC-100, got %v", hits)
	}

	// Three tokens require only two hits.
	hits = cat.Search(Query{Tokens: []string{"perfil", "galvanizado", "inexistente"}})
	if len(hits) != 1 || hits[0].Code != "PC-100" {
		t.Fatalf("expected majority match on PC-100, got %v", hits)
	}

	// One of three is below the majority threshold.
	hits = cat.Search(Query{Tokens: []string{"perfil", "nada", "tampoco"}})
	if len(hits) != 0 {
		t.Fatalf("expected no match with 1/3 hits, got %v", hits)
	}
}

func TestLocalSearchHardNOT(t *testing.T) {
	cat := NewLocal(testEntries())
	hits := cat.Search(Query{Tokens: []string{"omega", "durlock"}, Not: []string{"madera"}})
	if len(hits) != 0 {
		t.Fatalf("not-token must exclude absolutely, got %v", hits)
	}
}

func TestLocalSearchFamilyIsLiteralSubstring(t *testing.T) {
	cat := NewLocal(testEntries())
	hits := cat.Search(Query{Tokens: []string{"perfil", "estructural"}, Family: "perfil u"})
	if len(hits) != 1 || hits[0].Code != "PU-80" {
		t.Fatalf("family filter should leave only PU-80, got %v", hits)
	}
}

func TestLocalSearchAccentInsensitive(t *testing.T) {
	cat := NewLocal([]Entry{entry(1, "Caño PVC 110mm", "CP-110", 2)})
	hits := cat.Search(Query{Tokens: []string{"cano", "110mm"}})
	if len(hits) != 1 {
		t.Fatalf("folded match expected, got %v", hits)
	}
}

func TestLoadCSVSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.csv")
	data := "id,name,default_code,qty_available,list_price,categ_id,uom_id\n" +
		"1,Perfil C 100mm,PC-100,5,1200.50,Perfiles,unidad\n" +
		"2,,NO-NAME,1,10,x,u\n" +
		"3,Sin codigo,,1,10,x,u\n" +
		"4,Omega 35mm,OM-35,\"0\",\"999,90\",Perfiles,unidad\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	entries, err := LoadCSV(path, log.New(os.Stderr, "[TEST] ", 0))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 valid rows, got %d", len(entries))
	}
	if entries[0].NormName != "perfil c 100mm" {
		t.Fatalf("normalization must happen at load, got %q", entries[0].NormName)
	}
	if entries[1].Price != 999.90 {
		t.Fatalf("comma decimal must parse, got %v", entries[1].Price)
	}
}

func TestLoadCSVMissingFileIsError(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), nil); err == nil {
		t.Fatal("expected error for missing catalog source")
	}
}

func TestIndexedSearchMatchesPolicy(t *testing.T) {
	idx, err := NewIndexed(testEntries())
	if err != nil {
		t.Fatalf("NewIndexed: %v", err)
	}

	hits := idx.Search(Query{Tokens: []string{"perfil", "galvanizado"}})
	if len(hits) != 1 || hits[0].Code != "PC-100" {
		t.Fatalf("expected PC-100, got %v", hits)
	}

	hits = idx.Search(Query{Tokens: []string{"omega", "durlock"}, Not: []string{"madera"}})
	if len(hits) != 0 {
		t.Fatalf("not-token must exclude on the indexed path too, got %v", hits)
	}
}

func TestIndexedStockSortsFirst(t *testing.T) {
	idx, err := NewIndexed([]Entry{
		entry(1, "Perfil Z agotado", "PZ-1", 0),
		entry(2, "Perfil Z disponible", "PZ-2", 7),
	})
	if err != nil {
		t.Fatalf("NewIndexed: %v", err)
	}
	hits := idx.SearchText("perfil", 10)
	if len(hits) != 2 || hits[0].Code != "PZ-2" {
		t.Fatalf("in-stock entry must sort first, got %v", hits)
	}
}

func TestIndexedRebuildSwapsAtomically(t *testing.T) {
	idx, err := NewIndexed(testEntries())
	if err != nil {
		t.Fatalf("NewIndexed: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			idx.Search(Query{Tokens: []string{"perfil", "c"}})
		}
	}()
	for i := 0; i < 5; i++ {
		if err := idx.Rebuild(testEntries()); err != nil {
			t.Fatalf("Rebuild: %v", err)
		}
	}
	<-done
	if idx.Len() != 3 {
		t.Fatalf("expected 3 entries after rebuild, got %d", idx.Len())
	}
}

func TestMockIsDeterministic(t *testing.T) {
	m := Mock{}
	q := Query{Tokens: []string{"necesito", "taladro", "percutor"}}
	a := m.Search(q)
	b := m.Search(q)
	if len(a) != 4 {
		t.Fatalf("expected 4 fabricated entries, got %d", len(a))
	}
	for i := range a {
		if a[i].Code != b[i].Code || a[i].Price != b[i].Price {
			t.Fatalf("mock output must be deterministic: %v vs %v", a[i], b[i])
		}
	}
	for _, e := range a {
		if e.NormName == "" || e.NormName[:len("taladro")] != "taladro" {
			t.Fatalf("stopwords must be dropped from mock names, got %q", e.Name)
		}
	}
}
