// Package handlers holds the gin HTTP layer. Handlers parse and normalize
// input, delegate to the services, and translate service errors through
// httperr; no business rules live here.
package handlers

import (
	"net/http"

	"kirana_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// actor returns the authenticated caller's id and role from the JWT claims
// set by the middleware.
func actor(c *gin.Context) (gocql.UUID, string, bool) {
	raw := c.GetString("user_id")
	id, err := gocql.ParseUUID(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sesi tidak valid"})
		c.Abort()
		return gocql.UUID{}, "", false
	}
	return id, c.GetString("role"), true
}

// pathOrderID parses the :id path segment.
func pathOrderID(c *gin.Context) (gocql.UUID, bool) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID pesanan tidak valid"})
		return gocql.UUID{}, false
	}
	return id, true
}

// orderView augments the order JSON with the display code.
func orderView(o *models.Order) gin.H {
	return gin.H{"order": o, "code": o.Code()}
}
