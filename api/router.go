package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricehunt/aggregator"
	"github.com/use-agent/pricehunt/api/handler"
	"github.com/use-agent/pricehunt/api/middleware"
	"github.com/use-agent/pricehunt/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring checks always work.
func NewRouter(agg *aggregator.Aggregator, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(agg, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Aggregated search across every storefront.
	protected.GET("/search", handler.Search(agg))

	// Single storefront, with extraction report.
	protected.GET("/sources/:source/search", handler.SourceSearch(agg))

	return r
}
