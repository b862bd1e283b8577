package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin gates routes to the "admin" role set by AuthRequired.
func RequireAdmin(c *gin.Context) {
	role, exists := c.Get("role")
	if !exists || role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Akses khusus administrator"})
		c.Abort()
		return
	}
	c.Next()
}
