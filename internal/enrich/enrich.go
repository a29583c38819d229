// Package enrich hydrates candidate entries with authoritative price and
// stock from an ERP bridge. It is strictly best-effort: on any failure the
// original candidates pass through unchanged.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/felemax/felia/internal/catalog"
)

// Hydrator overwrites price/quantity where an authoritative record exists.
type Hydrator interface {
	Hydrate(ctx context.Context, candidates []catalog.Entry) []catalog.Entry
}

// Noop passes candidates through untouched; used when enrichment is off.
type Noop struct{}

func (Noop) Hydrate(_ context.Context, candidates []catalog.Entry) []catalog.Entry {
	return candidates
}

type record struct {
	Code         string  `json:"default_code"`
	Price        float64 `json:"list_price"`
	QtyAvailable float64 `json:"qty_available"`
}

// HTTP queries the bridge endpoint with the candidate codes.
type HTTP struct {
	endpoint   string
	httpClient *http.Client
	logger     *log.Logger
}

func NewHTTP(endpoint string, timeout time.Duration, logger *log.Logger) *HTTP {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTP{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (h *HTTP) Hydrate(ctx context.Context, candidates []catalog.Entry) []catalog.Entry {
	if len(candidates) == 0 || h.endpoint == "" {
		return candidates
	}
	codes := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Code != "" {
			codes = append(codes, c.Code)
		}
	}
	body, err := json.Marshal(map[string][]string{"codes": codes})
	if err != nil {
		return candidates
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return candidates
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.warn("enrichment unreachable: %v", err)
		return candidates
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		h.warn("enrichment returned status %d", resp.StatusCode)
		return candidates
	}
	var records []record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		h.warn("enrichment returned bad payload: %v", err)
		return candidates
	}

	byCode := make(map[string]record, len(records))
	for _, r := range records {
		if r.Code != "" {
			byCode[r.Code] = r
		}
	}
	out := make([]catalog.Entry, len(candidates))
	copy(out, candidates)
	for i := range out {
		if r, ok := byCode[out[i].Code]; ok {
			out[i].Price = r.Price
			out[i].QtyAvailable = r.QtyAvailable
		}
	}
	return out
}

func (h *HTTP) warn(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
