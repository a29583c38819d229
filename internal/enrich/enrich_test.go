package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/felemax/felia/internal/catalog"
)

func TestHydrateOverwritesMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"default_code": "PC-100", "list_price": 2500.0, "qty_available": 12.0},
		})
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, time.Second, nil)
	in := []catalog.Entry{
		{Code: "PC-100", Price: 1000, QtyAvailable: 0},
		{Code: "PU-80", Price: 800, QtyAvailable: 3},
	}
	out := h.Hydrate(context.Background(), in)
	if out[0].Price != 2500 || out[0].QtyAvailable != 12 {
		t.Fatalf("matched entry must be overwritten, got %+v", out[0])
	}
	if out[1].Price != 800 || out[1].QtyAvailable != 3 {
		t.Fatalf("unmatched entry must pass through, got %+v", out[1])
	}
	if in[0].Price != 1000 {
		t.Fatal("input slice must not be mutated")
	}
}

func TestHydratePassThroughOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, time.Second, nil)
	in := []catalog.Entry{{Code: "PC-100", Price: 1000}}
	out := h.Hydrate(context.Background(), in)
	if len(out) != 1 || out[0].Price != 1000 {
		t.Fatalf("failure must pass candidates through, got %v", out)
	}
}

func TestNoopPassesThrough(t *testing.T) {
	in := []catalog.Entry{{Code: "X"}}
	if out := (Noop{}).Hydrate(context.Background(), in); len(out) != 1 || out[0].Code != "X" {
		t.Fatalf("noop must pass through, got %v", out)
	}
}
