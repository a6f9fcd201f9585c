package models

// Sort orders accepted by the search endpoint. They reorder a response copy
// only; the aggregation result and its cheapest pick are unaffected.
const (
	SortNone      = ""
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortTitleAsc  = "az"
	SortTitleDesc = "za"
	SortRelevance = "relevance"
)

// SearchRequest is the query string for GET /api/v1/search and
// GET /api/v1/sources/:source/search.
type SearchRequest struct {
	// Query is the free-text search term. Required.
	Query string `form:"q" binding:"required,max=200"`

	// Sort optionally reorders the returned items.
	// Allowed: "price_asc", "price_desc", "az", "za", "relevance".
	Sort string `form:"sort" binding:"omitempty,oneof=price_asc price_desc az za relevance"`
}
