package catalog

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"

	"github.com/felemax/felia/internal/textnorm"
)

// Conversational fillers that must not leak into fabricated product names.
// These are not domain synonyms, just chat noise.
var mockStopwords = map[string]bool{
	"hola": true, "buenas": true, "buenos": true, "dias": true, "tardes": true,
	"necesito": true, "quiero": true, "busco": true, "tengo": true, "dame": true,
	"para": true, "por": true, "de": true, "del": true, "la": true, "el": true,
	"un": true, "una": true, "unos": true, "unas": true, "los": true, "las": true,
	"y": true, "o": true, "con": true, "sin": true, "que": true, "algo": true,
	"ok": true, "dale": true, "bien": true, "gracias": true, "listo": true,
}

// Mock fabricates deterministic pseudo-products from the query itself, so
// the whole engine can run without a catalog file. Prices and stock are
// hash-seeded: the same query always yields the same listing.
type Mock struct {
	Target int
}

func (m Mock) Search(q Query) []Entry {
	target := m.Target
	if target <= 0 {
		target = 4
	}
	var kept []string
	for _, tok := range q.Tokens {
		f := textnorm.Fold(tok)
		if f == "" || mockStopwords[f] {
			continue
		}
		kept = append(kept, f)
	}
	if family := textnorm.Fold(q.Family); family != "" && !contains(kept, family) {
		kept = append([]string{family}, kept...)
	}
	if len(kept) == 0 {
		return nil
	}

	base := strings.Join(kept, " ")
	out := make([]Entry, 0, target)
	for i := 0; i < target; i++ {
		seed := mockSeed(fmt.Sprintf("%s|%d", base, i))
		rng := rand.New(rand.NewSource(seed))
		price := float64(int((1500+rng.Float64()*12000)*100)) / 100
		qty := 0.0
		if rng.Float64() < 0.8 {
			qty = float64(1 + rng.Intn(30))
		}
		name := fmt.Sprintf("%s %s", title(base), mockVariants[i%len(mockVariants)])
		code := mockCode(base, i)
		out = append(out, Entry{
			ID:           int(seed % 100000),
			Name:         name,
			NormName:     textnorm.Fold(name),
			Code:         code,
			NormCode:     textnorm.Fold(code),
			QtyAvailable: qty,
			Price:        price,
			Category:     "mock",
		})
	}
	return out
}

var mockVariants = []string{"estándar", "reforzado", "liviano", "premium"}

func mockSeed(s string) int64 {
	sum := sha256.Sum256([]byte(s))
	return int64(binary.BigEndian.Uint64(sum[:8]) & 0x7fffffffffffffff)
}

func mockCode(base string, i int) string {
	sum := sha256.Sum256([]byte(base))
	return fmt.Sprintf("MK-%s-%d", strings.ToUpper(hex.EncodeToString(sum[:3])), i+1)
}

func title(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
