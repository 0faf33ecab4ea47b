package handlers

import (
	"net/http"

	"interior-ledger/internal/database"
	"interior-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

func ListAuditLogs(c *gin.Context) {
	var logs []models.AuditLog
	if err := database.DB.
		Preload("User").
		Order("created_at desc").
		Limit(200).
		Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
