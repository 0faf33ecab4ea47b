package middleware

import (
	"net/http"

	"interior-ledger/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// ActorKey is the gin context key holding the models.Actor of the request.
const ActorKey = "Actor"

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		userID, ok := sess.Get("user_id").(uint)
		if !ok || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		roleStr, _ := sess.Get("role").(string)
		c.Set(ActorKey, models.Actor{UserID: userID, Role: models.UserRole(roleStr)})
		c.Next()
	}
}

func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, ok := roleSet[actor.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor set by RequireAuth.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok && actor.UserID != 0
}
