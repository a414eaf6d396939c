package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/klasnova/klasnova-api/internal/middleware"
	"github.com/klasnova/klasnova-api/internal/models"
)

// claimsFromContext returns the JWT claims stored by the auth middleware.
// A nil return means the route was registered without it; services treat
// nil claims as unauthorized.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
