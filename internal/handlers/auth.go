package handlers

import (
	"net/http"
	"strings"

	"interior-ledger/internal/database"
	"interior-ledger/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type registerForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Role     string `form:"role" json:"role"`
}

// registrableRole: через форму можно регистрировать всех, кроме admin
func registrableRole(role models.UserRole) bool {
	switch role {
	case models.RoleManager, models.RoleAccounts, models.RoleDesigner, models.RoleViewer:
		return true
	}
	return false
}

func Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid registration data")
		return
	}

	form.Username = strings.TrimSpace(form.Username)
	if len(form.Username) < 3 || len(form.Password) < 6 {
		badRequest(c, "username or password too short")
		return
	}

	role := models.UserRole(form.Role)
	if !registrableRole(role) {
		badRequest(c, "invalid role")
		return
	}

	var existing models.User
	if err := database.DB.Where("username = ?", form.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	user := models.User{
		Username:     form.Username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save user"})
		return
	}

	database.CreateAuditLog(user.ID, "user", user.ID, "create", "User registered: "+user.Username)

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username, "role": user.Role})
}

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid login data")
		return
	}

	var user models.User
	if err := database.DB.Where("username = ?", form.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	sess.Set("role", string(user.Role))
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username, "role": user.Role})
}

func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}
