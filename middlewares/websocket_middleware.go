package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/dinetap/dinein-app/utils"
)

// WebSocketAuthMiddleware authorizes floor-display websocket connections.
// Browsers cannot set headers on websocket upgrades, so the token rides the
// query string.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("role", claims.Role)
		c.Set("user_id", claims.UserID)

		c.Next()
	}
}
