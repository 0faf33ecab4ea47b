package middleware

import (
	"errors"

	"interior-ledger/internal/database"
	"interior-ledger/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CurrentUserKey holds the models.User loaded for the session.
const CurrentUserKey = "CurrentUser"

// InjectUser loads the session's user. A session pointing at a deleted user
// is cleared so RequireAuth rejects it. The role kept in the session is
// refreshed from the database, so a role change applies on the next request.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		uid, ok := sess.Get("user_id").(uint)
		if !ok || uid == 0 || database.DB == nil {
			c.Next()
			return
		}

		var user models.User
		err := database.DB.First(&user, uid).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sess.Clear()
			_ = sess.Save()
		case err == nil:
			c.Set(CurrentUserKey, user)
			if role, _ := sess.Get("role").(string); role != string(user.Role) {
				sess.Set("role", string(user.Role))
				_ = sess.Save()
			}
		}

		c.Next()
	}
}
