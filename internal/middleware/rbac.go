package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-notify-api/internal/models"
	appErrors "github.com/noah-isme/sma-notify-api/pkg/errors"
	"github.com/noah-isme/sma-notify-api/pkg/response"
)

// RequireRole guards a route behind the access gate. An authenticated
// principal passes when its role satisfies the required role through the
// containment hierarchy; anything else gets 403.
func RequireRole(required models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if !models.Authorize(claims.Role, required) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
