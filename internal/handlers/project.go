package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"interior-ledger/internal/database"
	"interior-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type projectForm struct {
	Title        string `form:"title" json:"title"`
	ClientID     uint   `form:"client_id" json:"clientId"`
	Type         string `form:"type" json:"type"`
	SiteAddress  string `form:"site_address" json:"siteAddress"`
	Description  string `form:"description" json:"description"`
	PlannedStart string `form:"planned_start" json:"plannedStart"`
	PlannedEnd   string `form:"planned_end" json:"plannedEnd"`
	ManagerID    uint   `form:"manager_id" json:"managerId"`
	DesignerID   uint   `form:"designer_id" json:"designerId"`
}

//
// СПИСОК ПРОЕКТОВ
//

// Список проектов + фильтры
func ListProjects(c *gin.Context) {
	clientIDStr := c.Query("client_id")
	typeStr := c.Query("type")
	statusStr := c.Query("status")

	dbq := database.DB.Preload("Client").Order("created_at desc")

	if clientIDStr != "" {
		if cid, err := strconv.Atoi(clientIDStr); err == nil && cid > 0 {
			dbq = dbq.Where("client_id = ?", cid)
		}
	}
	if typeStr != "" {
		dbq = dbq.Where("type = ?", typeStr)
	}
	if statusStr != "" {
		dbq = dbq.Where("status = ?", statusStr)
	}

	var projects []models.Project
	if err := dbq.Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func ShowProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.Preload("Client").First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}

//
// СОЗДАНИЕ / РЕДАКТИРОВАНИЕ
//

func CreateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var form projectForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid project data")
		return
	}

	var project models.Project
	if msg := applyProjectForm(&project, form); msg != "" {
		badRequest(c, msg)
		return
	}
	project.Status = models.StatusLead
	if project.ManagerID == 0 {
		project.ManagerID = actor.UserID
	}

	if err := database.DB.Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save project"})
		return
	}

	database.CreateAuditLog(actor.UserID, "project", project.ID, "create", "Project created: "+project.Title)

	c.JSON(http.StatusCreated, project)
}

func UpdateProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	var form projectForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid project data")
		return
	}
	if form.ManagerID == 0 {
		form.ManagerID = project.ManagerID
	}
	if msg := applyProjectForm(&project, form); msg != "" {
		badRequest(c, msg)
		return
	}

	if err := database.DB.Save(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save project"})
		return
	}

	database.CreateAuditLog(actor.UserID, "project", project.ID, "update", "Project updated: "+project.Title)

	c.JSON(http.StatusOK, project)
}

// applyProjectForm validates the form and copies it onto project.
// Returns a user-facing message on the first problem.
func applyProjectForm(project *models.Project, form projectForm) string {
	title := strings.TrimSpace(form.Title)
	if len(title) < 3 {
		return "project title must be at least 3 characters"
	}

	ptype := models.ProjectType(form.Type)
	if !models.ValidProjectType(ptype) {
		return "invalid project type"
	}

	// клиент обязателен
	var client models.Client
	if form.ClientID == 0 || database.DB.First(&client, form.ClientID).Error != nil {
		return "client not found"
	}

	if form.ManagerID != 0 && !userHasRole(form.ManagerID, models.RoleManager, models.RoleAdmin) {
		return "manager not found"
	}
	if form.DesignerID != 0 && !userHasRole(form.DesignerID, models.RoleDesigner) {
		return "designer not found"
	}

	plannedStart, err := parseOptionalDate(form.PlannedStart)
	if err != nil {
		return "invalid planned start date"
	}
	plannedEnd, err := parseOptionalDate(form.PlannedEnd)
	if err != nil {
		return "invalid planned end date"
	}
	if plannedStart != nil && plannedEnd != nil && plannedEnd.Before(*plannedStart) {
		return "planned end is before planned start"
	}

	project.Title = title
	project.ClientID = client.ID
	project.Type = ptype
	project.SiteAddress = strings.TrimSpace(form.SiteAddress)
	project.Description = strings.TrimSpace(form.Description)
	project.PlannedStart = plannedStart
	project.PlannedEnd = plannedEnd
	project.ManagerID = form.ManagerID
	project.DesignerID = form.DesignerID
	return ""
}

func userHasRole(id uint, roles ...models.UserRole) bool {
	var user models.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return false
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}

func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

//
// СМЕНА СТАТУСА
//

type statusForm struct {
	Status string `form:"status" json:"status"`
}

func ChangeProjectStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var form statusForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid status")
		return
	}
	newStatus := models.ProjectStatus(form.Status)
	if !models.ValidProjectStatus(newStatus) {
		badRequest(c, "invalid status")
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	if !canChangeProjectStatus(actor.Role, project.Status, newStatus) {
		c.JSON(http.StatusForbidden, gin.H{"error": "status change not allowed"})
		return
	}

	if newStatus == models.StatusCompleted {
		now := time.Now()
		project.ActualEnd = &now
	}
	old := project.Status
	project.Status = newStatus

	if err := database.DB.Save(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		return
	}

	database.CreateAuditLog(actor.UserID, "project", project.ID, "status_change",
		"Status changed: "+string(old)+" -> "+string(newStatus))

	c.JSON(http.StatusOK, project)
}

// логика ролей
func canChangeProjectStatus(role models.UserRole, current, next models.ProjectStatus) bool {
	if current == next {
		return false
	}

	switch role {

	case models.RoleAdmin:
		return true

	case models.RoleManager:
		switch current {
		case models.StatusLead:
			return next == models.StatusDesign || next == models.StatusCancelled
		case models.StatusDesign:
			return next == models.StatusExecution || next == models.StatusCancelled
		case models.StatusExecution:
			return next == models.StatusHandover || next == models.StatusCancelled
		case models.StatusHandover:
			return next == models.StatusCompleted || next == models.StatusExecution
		}
		return false

	case models.RoleDesigner:
		return current == models.StatusLead && next == models.StatusDesign

	default:
		return false
	}
}

//
// УДАЛЕНИЕ ПРОЕКТА
//

func DeleteProject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	if err := database.DB.Delete(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
		return
	}

	database.CreateAuditLog(actor.UserID, "project", project.ID, "delete", "Project deleted: "+project.Title)

	c.Status(http.StatusNoContent)
}

//
// ИСТОРИЯ ПРОЕКТА
//

func ShowProjectHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	logs, err := database.ProjectHistory(database.DB, project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project, "logs": logs})
}
