package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricehunt/aggregator"
	"github.com/use-agent/pricehunt/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when no storefront is registered, since every search
// would then come back empty.
func Health(agg *aggregator.Aggregator, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		sources := agg.Sources()

		status := "healthy"
		if len(sources) == 0 {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Sources: sources,
			Version: Version,
		})
	}
}
