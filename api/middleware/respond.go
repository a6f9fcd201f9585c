package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricehunt/models"
)

// abort stops the chain with the same error envelope the handlers use.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.SearchResponse{
		Success: false,
		Items:   []models.Product{},
		Error:   &models.ErrorDetail{Code: code, Message: message},
	})
}
