package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricehunt/aggregator"
	"github.com/use-agent/pricehunt/models"
	"github.com/use-agent/pricehunt/storefront"
)

// SourceSearch returns a handler for GET /api/v1/sources/:source/search.
//
// It runs a single storefront in isolation and, when the adapter supports
// it, includes the extraction report so selector or JSON-path drift can be
// diagnosed without reading logs.
func SourceSearch(agg *aggregator.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		name := c.Param("source")

		ext, ok := agg.Source(name)
		if !ok {
			c.JSON(http.StatusNotFound, models.SourceSearchResponse{
				Success: false,
				Items:   []models.Product{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeUnknownSource,
					Message: "unknown source: " + name,
				},
			})
			return
		}

		var req models.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil || strings.TrimSpace(req.Query) == "" {
			msg := "query parameter q is required"
			if err != nil {
				msg = bindMessage(err)
			}
			c.JSON(http.StatusBadRequest, models.SourceSearchResponse{
				Success: false,
				Source:  ext.Source(),
				Items:   []models.Product{},
				Error:   &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: msg},
			})
			return
		}
		query := strings.TrimSpace(req.Query)

		var (
			items  []models.Product
			report *models.ExtractStats
		)
		if r, ok := ext.(storefront.Reporter); ok {
			items, report = r.ExtractReport(c.Request.Context(), query)
		} else {
			items = ext.Extract(c.Request.Context(), query)
		}

		c.JSON(http.StatusOK, models.SourceSearchResponse{
			Success: true,
			Source:  ext.Source(),
			Query:   query,
			Total:   len(items),
			Items:   sortItems(items, req.Sort, query),
			Report:  report,
			Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}
