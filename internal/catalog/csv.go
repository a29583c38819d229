package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/felemax/felia/internal/textnorm"
)

// LoadCSV reads the catalog source. A missing file is fatal for the caller;
// a malformed row (no name or no code) is skipped and loading continues.
func LoadCSV(path string, logger *log.Logger) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog source not found: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}

	field := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := col[n]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var entries []Entry
	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		name := field(row, "name")
		code := field(row, "default_code")
		if name == "" || code == "" {
			skipped++
			continue
		}
		id, _ := strconv.Atoi(field(row, "id"))
		entries = append(entries, Entry{
			ID:            id,
			Name:          name,
			NormName:      textnorm.Fold(name),
			Code:          code,
			NormCode:      textnorm.Fold(code),
			QtyAvailable:  parseQty(field(row, "qty_available")),
			Price:         parseQty(field(row, "list_price")),
			Category:      field(row, "categ_id", "categ"),
			UnitOfMeasure: field(row, "uom_id", "uom"),
		})
	}
	if skipped > 0 && logger != nil {
		logger.Printf("catalog load: skipped %d malformed rows", skipped)
	}
	return entries, nil
}

// parseQty tolerates comma decimals and blanks; anything unparseable is zero.
func parseQty(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
