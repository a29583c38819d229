package dialogue

import (
	"fmt"
	"strings"

	"github.com/felemax/felia/internal/catalog"
)

// formatListing renders the short numbered listing the user sees on a
// successful result: name, code, optional price, stock tag.
func formatListing(items []catalog.Entry, showPrices bool, currency string) string {
	var b strings.Builder
	for i, it := range items {
		stock := "Sin stock"
		if it.InStock() {
			stock = "Disponible"
		}
		if showPrices && it.Price > 0 {
			fmt.Fprintf(&b, "%d. *%s* — Código: %s — %s %.2f — %s\n", i+1, it.Name, it.Code, currency, it.Price, stock)
		} else {
			fmt.Fprintf(&b, "%d. *%s* — Código: %s — %s\n", i+1, it.Name, it.Code, stock)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
