package handlers

import (
	"net/http"
	"strings"

	"interior-ledger/internal/database"
	"interior-ledger/internal/middleware"
	"interior-ledger/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type clientForm struct {
	Name    string `form:"name" json:"name"`
	Phone   string `form:"phone" json:"phone"`
	Email   string `form:"email" json:"email"`
	Address string `form:"address" json:"address"`
	Notes   string `form:"notes" json:"notes"`
}

func (f *clientForm) trim() {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.Notes = strings.TrimSpace(f.Notes)
}

//
// СПИСОК / СОЗДАНИЕ
//

func ListClients(c *gin.Context) {
	var clients []models.Client
	if err := database.DB.Order("name asc").Find(&clients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load clients"})
		return
	}

	// viewer видит контакты только в маске
	if actor, ok := middleware.ActorFrom(c); ok && actor.Role == models.RoleViewer {
		for i := range clients {
			maskContacts(&clients[i])
		}
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func CreateClient(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var form clientForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid client data")
		return
	}
	form.trim()

	if len(form.Name) < 2 {
		badRequest(c, "client name must be at least 2 characters")
		return
	}
	if msg := clientConflict(form, 0); msg != "" {
		c.JSON(http.StatusConflict, gin.H{"error": msg})
		return
	}

	client := models.Client{
		Name:    form.Name,
		Phone:   form.Phone,
		Email:   form.Email,
		Address: form.Address,
		Notes:   form.Notes,
	}
	if err := database.DB.Create(&client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save client"})
		return
	}

	database.CreateAuditLog(actor.UserID, "client", client.ID, "create", "Client created: "+client.Name)

	c.JSON(http.StatusCreated, client)
}

//
// КАРТОЧКА / РЕДАКТИРОВАНИЕ
//

func ShowClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var client models.Client
	if err := database.DB.
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		First(&client, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	if actor, ok := middleware.ActorFrom(c); ok && actor.Role == models.RoleViewer {
		maskContacts(&client)
	}
	c.JSON(http.StatusOK, client)
}

func UpdateClient(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var client models.Client
	if err := database.DB.First(&client, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	var form clientForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid client data")
		return
	}
	form.trim()

	if len(form.Name) < 2 {
		badRequest(c, "client name must be at least 2 characters")
		return
	}
	if msg := clientConflict(form, client.ID); msg != "" {
		c.JSON(http.StatusConflict, gin.H{"error": msg})
		return
	}

	client.Name = form.Name
	client.Phone = form.Phone
	client.Email = form.Email
	client.Address = form.Address
	client.Notes = form.Notes

	if err := database.DB.Save(&client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save client"})
		return
	}

	database.CreateAuditLog(actor.UserID, "client", client.ID, "update", "Client updated: "+client.Name)

	c.JSON(http.StatusOK, client)
}

// clientConflict ищет другого клиента с тем же именем, e-mail или телефоном.
// excludeID = 0 при создании.
func clientConflict(form clientForm, excludeID uint) string {
	checks := []struct {
		where string
		value string
		msg   string
	}{
		{"LOWER(name) = LOWER(?)", form.Name, "client with this name already exists"},
		{"LOWER(email) = LOWER(?)", form.Email, "client with this e-mail already exists"},
		{"phone = ?", form.Phone, "client with this phone number already exists"},
	}

	for _, chk := range checks {
		if chk.value == "" {
			continue
		}
		var count int64
		q := database.DB.Model(&models.Client{}).Where(chk.where, chk.value)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		q.Count(&count)
		if count > 0 {
			return chk.msg
		}
	}
	return ""
}

func maskContacts(client *models.Client) {
	if client.Email != "" {
		client.Email = maskEmail(client.Email)
	}
	if client.Phone != "" {
		client.Phone = maskPhone(client.Phone)
	}
}

func maskEmail(email string) string {
	runes := []rune(email)
	atIdx := -1
	for i, r := range runes {
		if r == '@' {
			atIdx = i
			break
		}
	}
	if atIdx <= 0 {
		return "***"
	}
	prefix := string(runes[:atIdx])
	domain := string(runes[atIdx:])
	if len(prefix) <= 2 {
		return prefix + "***" + domain
	}
	return string(runes[0:2]) + "***" + domain
}

func maskPhone(phone string) string {
	runes := []rune(phone)
	n := len(runes)
	if n <= 4 {
		return "***"
	}
	masked := make([]rune, n)
	for i := range runes {
		if i >= n-2 {
			masked[i] = runes[i]
		} else {
			masked[i] = '*'
		}
	}
	return string(masked)
}
