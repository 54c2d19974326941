package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rsaf-qualification-api/internal/middleware"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
)

func identityFromContext(c *gin.Context) (models.Identity, bool) {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return models.Identity{}, false
	}
	return claims.Identity(), true
}
