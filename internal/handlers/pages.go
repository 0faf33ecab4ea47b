package handlers

import (
	"net/http"

	"interior-ledger/internal/middleware"
	"interior-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

// Me returns the logged-in user loaded by middleware.InjectUser.
func Me(c *gin.Context) {
	uVal, ok := c.Get(middleware.CurrentUserKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	user, ok := uVal.(models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}
