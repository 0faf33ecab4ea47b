package handlers

import (
	"net/http"
	"strconv"

	"interior-ledger/internal/apperrors"
	"interior-ledger/internal/middleware"
	"interior-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

// respondError пишет {"error": ...} со статусом по коду ошибки.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(apperrors.CodeOf(err))
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func currentActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return actor, ok
}
