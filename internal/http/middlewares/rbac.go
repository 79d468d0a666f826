package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole gates an endpoint on the gateway-supplied role. A missing role
// is just as forbidden as a wrong one.
func (m *PrincipalMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := RoleFromContext(c)

		if role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status":  "error",
				"message": "Forbidden: you do not have permission to perform this action.",
			})
			return
		}
		c.Next()
	}
}
