package database

import (
	"interior-ledger/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// auditLog is set by Init; a failed audit write is logged, never returned.
var auditLog = zap.NewNop()

// CreateAuditLog пишет запись в журнал аудита.
func CreateAuditLog(userID uint, entity string, entityID uint, action, details string) {
	var projectID uint
	if entity == "project" {
		projectID = entityID
	}
	CreateProjectAuditLog(userID, projectID, entity, entityID, action, details)
}

// CreateProjectAuditLog is CreateAuditLog for events inside a project's ledger.
// Сигнатура совпадает с payments.AuditFunc.
func CreateProjectAuditLog(userID, projectID uint, entity string, entityID uint, action, details string) {
	if DB == nil {
		return
	}
	record := models.AuditLog{
		UserID:    userID,
		ProjectID: projectID,
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		Details:   details,
	}
	if err := DB.Create(&record).Error; err != nil {
		auditLog.Warn("failed to write audit log",
			zap.String("entity", entity),
			zap.Uint("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// ProjectHistory returns a project's audit trail oldest first: its own entries
// and every ledger event logged against it.
func ProjectHistory(db *gorm.DB, projectID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.
		Where("project_id = ?", projectID).
		Or("entity = ? AND entity_id = ?", "project", projectID).
		Preload("User").
		Order("created_at asc, id asc").
		Find(&logs).Error
	return logs, err
}
