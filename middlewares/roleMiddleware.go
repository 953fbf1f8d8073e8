package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"civicx-be/lifecycle"
	"civicx-be/models"
)

// RequireCapability gates a route on the capability table. Run after
// AuthMiddleware so the role is on the context.
func RequireCapability(action lifecycle.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, _ := c.Get("role")
		role, _ := roleVal.(string)

		if !lifecycle.Can(models.UserRole(role), action) {
			c.JSON(http.StatusForbidden, gin.H{"error": "your role is not allowed to perform this action"})
			c.Abort()
			return
		}

		c.Next()
	}
}
