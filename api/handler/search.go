package handler

import (
	"cmp"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricehunt/aggregator"
	"github.com/use-agent/pricehunt/models"
	"github.com/use-agent/pricehunt/relevance"
)

// Search returns a handler for GET /api/v1/search.
//
// Flow:
//  1. Bind & validate the query string.
//  2. Aggregator.Search fans out to every storefront.
//  3. Optionally reorder a copy of the items; cheapest is untouched.
func Search(agg *aggregator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Items:   []models.Product{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: bindMessage(err),
				},
			})
			return
		}

		// ── 2. Aggregate ────────────────────────────────────────────
		result, err := agg.Search(c.Request.Context(), req.Query)
		if err != nil {
			respondError(c, err, models.TimingInfo{TotalMs: time.Since(start).Milliseconds()})
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		query := strings.TrimSpace(req.Query)
		c.JSON(http.StatusOK, models.SearchResponse{
			Success:  true,
			Query:    query,
			Items:    sortItems(result.Items, req.Sort, query),
			Cheapest: result.Cheapest,
			Stats:    result.Stats,
			Sources:  result.Sources,
			Timing:   models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}

// sortItems returns items in the requested order. The input is never
// modified; SortNone returns it as-is. SortRelevance also stamps each copy
// with its match score and breaks ties by price.
func sortItems(items []models.Product, order, query string) []models.Product {
	if order == models.SortNone {
		return items
	}
	out := slices.Clone(items)
	switch order {
	case models.SortPriceAsc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return a.Price.Cmp(b.Price) })
	case models.SortPriceDesc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return b.Price.Cmp(a.Price) })
	case models.SortTitleAsc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return compareTitles(a.Title, b.Title) })
	case models.SortTitleDesc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return compareTitles(b.Title, a.Title) })
	case models.SortRelevance:
		for i := range out {
			score := relevance.Score(out[i].Title, query)
			out[i].MatchScore = &score
		}
		slices.SortStableFunc(out, func(a, b models.Product) int {
			if c := cmp.Compare(*b.MatchScore, *a.MatchScore); c != 0 {
				return c
			}
			return a.Price.Cmp(b.Price)
		})
	}
	return out
}

func compareTitles(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// bindMessage turns a binding failure into a message the caller can act on.
func bindMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "'Query'") && strings.Contains(msg, "'required'"):
		return "query parameter q is required"
	case strings.Contains(msg, "'Sort'"):
		return "sort must be one of price_asc, price_desc, az, za, relevance"
	}
	return msg
}

// respondError maps a PipelineError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var pe *models.PipelineError
	if !errors.As(err, &pe) {
		pe = models.NewPipelineError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(pe), models.SearchResponse{
		Success: false,
		Items:   []models.Product{},
		Error:   pe.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.PipelineError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnknownSource:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
