package models

import "github.com/shopspring/decimal"

func init() {
	// Prices are emitted as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Source identifies the storefront a product was extracted from.
type Source string

const (
	// SourceFalabella is the structured-data storefront (embedded JSON island).
	SourceFalabella Source = "falabella"

	// SourceMercadoLibre is the markup storefront (DOM traversal).
	SourceMercadoLibre Source = "mercadolibre"
)

// Product is a normalized listing. Values are built once by a storefront
// adapter and never mutated afterwards.
type Product struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	URL      string          `json:"url"`
	Image    string          `json:"image"`
	Source   Source          `json:"source"`

	// MatchScore is the 0-100 query relevance, set only on responses
	// ordered by relevance.
	MatchScore *int `json:"match_score,omitempty"`
}

// SearchResult is the merged, request-scoped output of one aggregation call.
type SearchResult struct {
	// Items is the concatenation of per-source lists in source registration
	// order. It is never re-sorted.
	Items []Product `json:"items"`

	// Cheapest is the first-encountered minimum-price item, nil when Items is empty.
	Cheapest *Product `json:"cheapest"`

	Stats Stats `json:"stats"`

	// Sources reports per-source timing, in registration order.
	Sources []SourceReport `json:"sources"`
}

// Stats counts accepted items per source.
type Stats struct {
	Total    int            `json:"total"`
	BySource map[Source]int `json:"by_source"`
}

// SourceReport is the per-source outcome of an aggregation call.
type SourceReport struct {
	Source     Source `json:"source"`
	Count      int    `json:"count"`
	DurationMs int64  `json:"duration_ms"`
}
