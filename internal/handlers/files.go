package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"interior-ledger/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProofOpener resolves a signed download token to the stored object.
type ProofOpener interface {
	Open(ctx context.Context, token string) (io.ReadCloser, string, error)
}

// DownloadProof handles GET /files?token=... . The token itself is the
// authorization, so the route sits outside RequireAuth.
func DownloadProof(opener ProofOpener, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			badRequest(c, "token is required")
			return
		}

		rc, name, err := opener.Open(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrInvalidToken):
			c.JSON(http.StatusForbidden, gin.H{"error": "link is invalid or expired"})
			return
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		case errors.Is(err, storage.ErrInvalidPath):
			badRequest(c, "invalid file path")
			return
		default:
			log.Error("open proof", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
			return
		}
		defer rc.Close()

		// только из белого списка отдаём inline, остальное скачивается
		disposition := "inline"
		ctype, ok := storage.ProofContentType(name)
		if !ok {
			ctype = "application/octet-stream"
			disposition = "attachment"
		}
		c.Header("Content-Type", ctype)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, name))
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil {
			log.Warn("stream proof", zap.String("name", name), zap.Error(err))
		}
	}
}
